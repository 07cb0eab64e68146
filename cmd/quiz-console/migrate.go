package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/quiz-console/internal/journal"
)

// migrateCmd applies the workflow journal schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending workflow journal migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Journal.DSN == "" {
			return errors.New("journal DSN is not configured (set JOURNAL_DSN)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := journal.MigrateFromDSN(ctx, cfg.Journal.DSN); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
		slog.Info("journal migrations applied")
		return nil
	},
}

// orphansCmd lists topics left without the questions they were created with
var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List topics whose question attachment failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Journal.DSN == "" {
			return errors.New("journal DSN is not configured (set JOURNAL_DSN)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rec, err := journal.NewPostgresRecorder(ctx, journal.PostgresConfig{DSN: cfg.Journal.DSN})
		if err != nil {
			return err
		}
		defer rec.Close()

		entries, err := rec.ListByState(ctx, journal.StateAttachFailed)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s\t%q\t%d questions\t%s\n",
				e.UpdatedAt.Format(time.RFC3339), e.TopicID, e.TopicName, len(e.Questions), e.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(orphansCmd)
}
