package main

import (
	"github.com/EasterCompany/pulse-service/app"
	logger "github.com/EasterCompany/pulse-service/log"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = l.Sync() }()

			// problems are reported, not fatal: the service degrades instead
			if err := cfg.Validate(); err != nil {
				l.Warn("configuration is incomplete", zap.Error(err))
			}

			v := utils.GetVersion()
			l.Info("starting pulse service", zap.String("version", v.Version), zap.String("commit", v.Commit))

			a, err := app.NewApp(cmd.Context(), cfg, l)
			if err != nil {
				logger.Error("could not start", err)
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}
