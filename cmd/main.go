package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/studentdiary-backend/internal/app"
	"github.com/yungbote/studentdiary-backend/internal/data/db"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diaryd",
		Short:         "Student diary API with background enrichment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), enrichCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and enrichment workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()
			return a.Run(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()
			svc, err := db.Open(cfg.DB, log)
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.AutoMigrateAll()
		},
	}
}

func enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich ENTRY_ID...",
		Short: "Run enrichment synchronously for the given entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, raw := range args {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid entry id %q: %w", raw, err)
				}
				ids = append(ids, id)
			}
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, id := range ids {
				if err := a.Services.Orchestrator.Enrich(ctx, id); err != nil {
					return fmt.Errorf("enrich %s: %w", id, err)
				}
				a.Log.Info("Entry enriched", "entry_id", id)
			}
			return nil
		},
	}
}
