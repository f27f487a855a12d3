package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/config"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-sales/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the event bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configFrom(ctx), logging.FromContext(ctx))
		},
	}
}

// serve blocks until ctx is cancelled or a component fails, then shuts the HTTP
// server down, drains the bus and flushes traces within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	system := logging.WithTrace(zl, logging.SystemTraceID, logging.SystemSpanID)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.Version, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app, err := Build(ctx, cfg, zl, reg)
	if err != nil {
		_ = shutdownTracing(context.WithoutCancel(ctx))
		return err
	}
	defer func() { _ = app.Close() }()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stopped through Stop below so queued events are still delivered.
		return app.Bus.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		system.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.StoreDriver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := app.Bus.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		system.Error("server_stopped_with_error", zap.Error(err))
		return err
	}
	system.Info("http_server_stopped")
	return nil
}
