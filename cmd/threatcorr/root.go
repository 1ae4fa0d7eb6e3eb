package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/config"
	"github.com/lcalzada-xor/threatcorr/internal/observability"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// rootOptions carries state initialized by the root command for subcommands.
type rootOptions struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "threatcorr",
		Short:         "Correlate CVEs with threat intelligence and score asset risk.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = observability.InitializeLogger(cfg.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (YAML); THREATCORR_* environment variables override it")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newServeCmd(opts), newAnalyzeCmd(opts))
	return cmd
}
