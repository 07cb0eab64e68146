package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/quiz-console/internal/api"
	"github.com/terra-clan/quiz-console/internal/config"
	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/events"
	"github.com/terra-clan/quiz-console/internal/journal"
	"github.com/terra-clan/quiz-console/internal/session"
	"github.com/terra-clan/quiz-console/internal/watch"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// serveCmd runs the console API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	slog.Info("starting quiz-console",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"remote", cfg.Remote.BaseURL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	checks := make(map[string]api.ReadinessCheck)

	// Operator credentials
	var tokens client.TokenSource = client.StaticTokens{Token: cfg.Auth.Token, Email: cfg.Auth.Email}
	if cfg.Auth.Token == "" && cfg.Auth.Redis.Address != "" {
		redisTokens, err := session.NewRedisTokens(initCtx, session.RedisConfig{
			Address:  cfg.Auth.Redis.Address,
			Password: cfg.Auth.Redis.Password,
			DB:       cfg.Auth.Redis.DB,
			TokenKey: cfg.Auth.Redis.TokenKey,
			EmailKey: cfg.Auth.Redis.EmailKey,
		})
		if err != nil {
			return fmt.Errorf("create redis token source: %w", err)
		}
		defer redisTokens.Close()

		tokens = redisTokens
		checks["redis"] = redisTokens.HealthCheck
		slog.Info("reading operator credentials from redis", "address", cfg.Auth.Redis.Address)
	}

	// Workflow journal
	var recorder journal.Recorder = journal.NewMemoryRecorder()
	if cfg.Journal.DSN != "" {
		pg, err := journal.NewPostgresRecorder(initCtx, journal.PostgresConfig{DSN: cfg.Journal.DSN})
		if err != nil {
			return fmt.Errorf("create workflow journal: %w", err)
		}
		recorder = pg
		checks["journal"] = pg.Ping
		slog.Info("workflow journal connected")
	} else {
		slog.Warn("journal DSN not set, workflow journal is kept in memory")
	}
	defer recorder.Close()

	remote := client.NewClient(cfg.Remote.BaseURL,
		client.WithTimeout(cfg.Remote.Timeout),
		client.WithTokenSource(tokens),
	)

	hub := events.NewHub()
	con := console.New(remote,
		console.WithJournal(recorder),
		console.WithNotifier(hub),
		console.WithLogger(slog.Default().With("component", "console")),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report topics earlier runs left without their questions
	watcher := watch.NewOrphanWatcher(recorder, hub, cfg.Journal.ScanInterval)
	watcher.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, con, hub, checks)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the events stream is long-lived
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("quiz-console stopped")
	return nil
}
