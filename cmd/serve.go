package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bistro/internal/api"
	"bistro/internal/jobs"
	"bistro/internal/monitoring"
	"bistro/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ordering API",
	Long: `Serve the HTTP and websocket ordering API.

Prometheus metrics are served on a separate port when enabled.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "API server port (overrides the config file)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("order database unreachable: %w", err)
	}

	factory, err := a.factory()
	if err != nil {
		return err
	}
	sessions, err := session.NewStore(a.cfg.Sessions.MaxSessions, factory, a.logger)
	if err != nil {
		return err
	}

	manager := jobs.NewJobManager(sessions, a.cfg.Sessions.IdleTimeout, a.cfg.Sessions.SweepSchedule, a.logger)
	if err := manager.StartAll(); err != nil {
		return err
	}
	defer manager.StopAll()

	monitor := monitoring.NewMonitor(a.collector,
		monitoring.WithSessions(sessions),
		monitoring.WithOrders(a.store),
		monitoring.WithMonitorLogger(a.logger),
	)

	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(sessions, a.menu,
		api.WithIndex(a.index),
		api.WithOrders(a.store),
		api.WithMonitor(monitor),
		api.WithLogger(a.logger),
		api.WithJWTSecret(a.cfg.Server.JWTSecret),
	)

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}}

	if a.cfg.Server.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Server.Metrics.Path, a.collector.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			a.logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down servers")
	case err = <-errCh:
		a.logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Warn("server shutdown error", zap.String("addr", srv.Addr), zap.Error(shutdownErr))
		}
	}
	return err
}
