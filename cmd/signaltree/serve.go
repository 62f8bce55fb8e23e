package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/signaltree"
	httpAdapter "github.com/aretw0/signaltree/pkg/adapters/http"
	"github.com/aretw0/signaltree/pkg/observability"
	"github.com/aretw0/signaltree/pkg/ports"
	"github.com/aretw0/signaltree/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>...",
	Short: "Serve descriptions over HTTP",
	Long:  `Compiles every description and exposes them as a JSON API, with Prometheus metrics under /metrics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		hooks := observability.MergeHooks(metrics.Hooks(), observability.LoggingHooks(logger))

		signals := make(map[string]*signaltree.Signal, len(args))
		for _, path := range args {
			sig, err := loadSignal(path, signaltree.WithLogger(logger), signaltree.WithLifecycleHooks(hooks))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, dup := signals[sig.Name()]; dup {
				return fmt.Errorf("%s: duplicate signal name %q", path, sig.Name())
			}
			signals[sig.Name()] = sig
		}

		b, err := openBackend(cmd, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err := b.close(); err != nil {
				logger.Warn("failed to close backend", "error", err)
			}
		}()

		sessionOpts := []session.Option{session.WithLogger(logger)}
		if b.remote() {
			sessionOpts = append(sessionOpts, session.WithLocker(b.locker))
		}

		handler := httpAdapter.NewHandler(signals,
			httpAdapter.WithSessions(session.NewManager(b.replay, sessionOpts...)),
			httpAdapter.WithStoreFactory(func(string) ports.Store { return b.newStore() }),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("server starting", "addr", srv.Addr, "signals", len(signals))
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d signals on %s\n", len(signals), srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown requested", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("failed to close server: %w", err)
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	addBackendFlags(serveCmd.Flags())
}
