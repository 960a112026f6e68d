// Command pulse runs the persona assessment service and its maintenance
// tools.
package main

import (
	"os"

	"github.com/EasterCompany/pulse-service/config"
	logger "github.com/EasterCompany/pulse-service/log"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = ""
	branch    = ""
	commit    = ""
	buildDate = ""
	arch      = ""
)

// ANSI color codes for formatted output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	utils.SetVersion(version, branch, commit, buildDate, arch)
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "pulse",
		Short:        "Pulse persona assessment service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/Pulse/config/pulse.json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newServeCommand(opts),
		newVerifyConfigCommand(opts),
		newDebugStoreCommand(opts),
		newVersionCommand(),
	)
	return root
}

// load reads the config and installs the package logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Init(l), nil
}
