package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/snapsi/config"
	snapsihttp "github.com/sagarc03/snapsi/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the snapsi HTTP server.

Besides the API, the server sweeps expired rate limiter entries and, unless
service.reconcile_interval is 0, periodically recounts every folder's images.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: SNAPSI_SERVER_PORT)")
	serveCmd.Flags().String("public-url", "", "external base URL used in signed links (env: SNAPSI_SERVER_PUBLIC_URL)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	handler := snapsihttp.NewHandler(&snapsihttp.HandlerConfig{
		Objects:           a.objects,
		Verifier:          a.verifier,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		CORS:              cfg.CORS,
	}, a.service)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error { return ignoreCanceled(a.uploads.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(a.deletes.Run(gctx)) })

	if cfg.Service.ReconcileInterval > 0 {
		g.Go(func() error {
			return ignoreCanceled(a.service.RunReconciler(gctx, cfg.Service.ReconcileInterval, cfg.Service.ReconcileBatch))
		})
	}

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
