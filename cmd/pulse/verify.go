package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"

	"github.com/EasterCompany/pulse-service/config"
	"github.com/spf13/cobra"
)

func newVerifyConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-config",
		Short: "Check the config file for unknown keys and unusable values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if !verifyConfig(cmd.OutOrStdout(), path) {
				return errors.New("configuration has problems")
			}
			return nil
		},
	}
}

func verifyConfig(out io.Writer, path string) bool {
	fmt.Fprintf(out, "%s--- Pulse Config Verifier ---%s\n", ColorBlue, ColorReset)
	fmt.Fprintf(out, "\nVerifying %s'%s'%s...\n", ColorBlue, path, ColorReset)

	// 1. Load through the same path as serve; a missing file is created
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "  %s[FAIL]%s %v\n", ColorRed, ColorReset, err)
		return false
	}
	fmt.Fprintf(out, "  %s[OK]%s File exists and is valid JSON.\n", ColorGreen, ColorReset)

	// 2. Keys the service does not read are usually typos
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "  %s[FAIL]%s File not readable: %v\n", ColorRed, ColorReset, err)
		return false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(content, &raw); err != nil {
		fmt.Fprintf(out, "  %s[FAIL]%s JSON is invalid: %v\n", ColorRed, ColorReset, err)
		return false
	}
	if unknown := unknownKeys(raw, knownKeys()); len(unknown) > 0 {
		fmt.Fprintf(out, "  %s[WARN]%s Unrecognized keys: %v\n", ColorYellow, ColorReset, unknown)
	} else {
		fmt.Fprintf(out, "  %s[OK]%s All keys are recognized.\n", ColorGreen, ColorReset)
	}

	// 3. Values
	err = cfg.Validate()
	if err == nil {
		fmt.Fprintf(out, "  %s[OK]%s All settings are usable.\n", ColorGreen, ColorReset)
		fmt.Fprintf(out, "\n%s✅ Configuration looks correct.%s\n", ColorGreen, ColorReset)
		return true
	}
	problems := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		problems = joined.Unwrap()
	}
	for _, p := range problems {
		fmt.Fprintf(out, "  %s[FAIL]%s %v\n", ColorRed, ColorReset, p)
	}
	fmt.Fprintf(out, "\n%s❌ Some issues were found in the configuration.%s\n", ColorRed, ColorReset)
	return false
}

// knownKeys lists every "section.key" the config struct decodes.
func knownKeys() map[string]bool {
	keys := make(map[string]bool)
	root := reflect.TypeOf(config.Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		name := section.Tag.Get("mapstructure")
		keys[name] = true
		if section.Type.Kind() != reflect.Struct {
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys[name+"."+section.Type.Field(j).Tag.Get("mapstructure")] = true
		}
	}
	return keys
}

func unknownKeys(raw map[string]interface{}, known map[string]bool) []string {
	var unknown []string
	for section, v := range raw {
		if !known[section] {
			unknown = append(unknown, section)
			continue
		}
		fields, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		for k := range fields {
			if !known[section+"."+k] {
				unknown = append(unknown, section+"."+k)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}
