package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/server"
	"github.com/desertthunder/studyx/internal/shared"
)

// Serve hosts the ticking timer behind the dashboard API until interrupted. A running timer is
// paused on shutdown so its remaining time is persisted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	t, err := r.loadTimer()
	if err != nil {
		return err
	}
	defer t.Pause()

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: --port must be between 1 and 65535", shared.ErrInvalidFlag)
		}
		cfg.Port = port
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(logger), server.RecoverMiddleware(logger))
	router.Handler(server.NewTimerHandler(t, r.sessions, logger))

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("dashboard listening", "addr", httpServer.Addr, "routes", router.Routes())
	r.writePlain("→ Dashboard API on http://%s/api/timer (Ctrl+C to stop)\n", httpServer.Addr)

	if err := server.Serve(ctx, httpServer); err != nil {
		return err
	}

	logger.Info("dashboard stopped")
	return nil
}
