package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trailaccess/trailguide/internal/di"
	"github.com/trailaccess/trailguide/internal/platform/config"
	"github.com/trailaccess/trailguide/internal/platform/observability"
)

// Global flag values.
var (
	flagEnvFile  string
	flagLogLevel string
)

var (
	logger    *zap.Logger
	container *di.Container
)

var rootCmd = &cobra.Command{
	Use:           "trailguide",
	Short:         "Browse, search and like crowdsourced trail accessibility guides",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return openContainer(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeContainer()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file with TRAILGUIDE_* overrides")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (default: $LOG_LEVEL or info)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(mineCmd)
}

// newLogger honours an explicit --log-level and otherwise reads LOG_LEVEL.
func newLogger(level string) (*zap.Logger, error) {
	if level != "" {
		return observability.NewLoggerWithLevel(level)
	}
	return observability.NewLogger()
}

// openContainer loads configuration and wires the session shared by every subcommand.
func openContainer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	logger, err = newLogger(flagLogLevel)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	logger = logger.Named("trailguide")

	cfg, err := config.Load(ctx, config.WithEnvFile(flagEnvFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err = di.NewContainer(ctx, cfg, di.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	return nil
}

func closeContainer() error {
	if logger != nil {
		defer func() { _ = logger.Sync() }()
	}
	if container == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return container.Close(ctx)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}
