package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/server"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = 5 * time.Minute
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily reminder scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger

	srv := server.New(server.Deps{
		DB:             a.db,
		Tokens:         a.tokens(),
		Mailer:         a.mailer(),
		Push:           a.pushService(),
		Today:          a.today,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	defer srv.Hub().Close()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var scheduler *reminder.Scheduler
	if a.cfg.Reminders.Enabled && len(a.cfg.NotifyChannels()) > 0 {
		sched, closeScheduler, err := a.scheduler()
		if err != nil {
			return err
		}
		defer closeScheduler()
		scheduler = sched
	} else {
		logger.Info("reminder scan disabled", "enabled", a.cfg.Reminders.Enabled, "channels", a.cfg.NotifyChannels())
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("billfold listening", "addr", httpServer.Addr, "driver", a.db.Driver())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if scheduler != nil {
		scheduler.Start(ctx)
	}

	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		if scheduler != nil {
			scheduler.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
