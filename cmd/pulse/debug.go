package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/EasterCompany/pulse-service/pipeline"
	"github.com/EasterCompany/pulse-service/store"
	"github.com/spf13/cobra"
)

// maxValueBytes truncates large values such as data URL images.
const maxValueBytes = 2048

func newDebugStoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "debug-store [workspace]",
		Short: "Dump the stored wizard state of a workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			rs, err := store.NewRedis(cmd.Context(), &cfg.Redis)
			if err != nil {
				return err
			}
			if rs == nil {
				return fmt.Errorf("redis.addr is not set; in-memory state cannot be inspected from another process")
			}
			defer func() { _ = rs.Close() }()

			name := pipeline.DefaultWorkspace
			if len(args) == 1 {
				name = args[0]
			}
			return dumpWorkspace(cmd, rs, name)
		},
	}
}

func dumpWorkspace(cmd *cobra.Command, st store.Store, name string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	keys, err := st.Keys(ctx, store.NewWorkspace(st, name).Prefix())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintf(out, "%sNo keys stored for workspace %q%s\n", ColorYellow, name, ColorReset)
		return nil
	}
	for _, key := range keys {
		fmt.Fprintf(out, "\n%s--- Key: %s ---%s\n", ColorBlue, key, ColorReset)
		val, err := st.Get(ctx, key)
		if err != nil {
			fmt.Fprintf(out, "%s[FAIL]%s %v\n", ColorRed, ColorReset, err)
			continue
		}
		printValue(out, val)
	}
	return nil
}

func printValue(out io.Writer, val []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, val, "", "  "); err == nil {
		val = pretty.Bytes()
	}
	if len(val) > maxValueBytes {
		fmt.Fprintf(out, "%s\n... (%d more bytes)\n", val[:maxValueBytes], len(val)-maxValueBytes)
		return
	}
	fmt.Fprintf(out, "%s\n", val)
}
