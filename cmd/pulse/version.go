package main

import (
	"fmt"

	"github.com/EasterCompany/pulse-service/utils"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			v := utils.GetVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "pulse %s (%s) %s %s %s\n", v.Version, v.Arch, v.Branch, v.Commit, v.BuildDate)
		},
	}
}
