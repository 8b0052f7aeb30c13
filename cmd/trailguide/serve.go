package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var flagPreload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over the JSON HTTP API",
	Long: `Serve exposes the catalog session to a presentation layer: statistics, the
filtered browse view with incremental batches, like toggles, view counting,
guide content and the signed-in user's trails.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagPreload, "preload", true, "run the initial load sequence before accepting requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := container.Config
	if flagPreload {
		result := container.Session.Load(ctx)
		for phase, err := range map[string]error{
			"stats":   result.StatsErr,
			"catalog": result.CatalogErr,
			"user":    result.UserErr,
		} {
			if err != nil {
				logger.Warn("initial load phase failed", zap.String("phase", phase), zap.Error(err))
			}
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      container.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("trailguide listening", zap.String("session_id", container.Session.ID()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
