package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Zhima-Mochi/minishop-sales/internal/config"
	"github.com/Zhima-Mochi/minishop-sales/internal/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type cfgKey struct{}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "minishop-sales",
		Short:         "Sales backend: sellers, products, clients and orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Version == "dev" {
				cfg.Version = version
			}
			logger, err := logging.NewLogger(logging.Options{
				Service: cfg.ServiceName,
				Env:     cfg.Env,
				Level:   cfg.LogLevel,
				File:    cfg.LogFile,
			})
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			for _, w := range cfg.Warnings {
				logger.Warn("config_warning", zap.String("detail", w))
			}

			ctx := context.WithValue(cmd.Context(), cfgKey{}, cfg)
			cmd.SetContext(logging.ContextWithLogger(ctx, logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = logging.FromContext(cmd.Context()).Sync()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file seeding unset variables")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newHashPasswordCmd(), newTokenCmd())
	return root
}

func configFrom(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(cfgKey{}).(*config.Config)
	return cfg
}
