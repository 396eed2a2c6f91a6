package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Create or upgrade the tender database.

Every command migrates on start, so this is only needed to prepare a database
ahead of time or to see which schema steps are still pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			settings, err := loadSettings(reasoningOff)
			if err != nil {
				return err
			}

			// Plain open: Open would migrate before --status could report.
			store, err := storage.NewSQLiteStorage(settings.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			pending, err := store.PendingMigrations(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if status {
				current, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.LabelStyle.Render("Database")+settings.DatabasePath)
				fmt.Fprintln(out, cli.LabelStyle.Render("Current version")+fmt.Sprint(current))
				fmt.Fprintln(out, cli.LabelStyle.Render("Latest version")+fmt.Sprint(storage.ExpectedSchemaVersion))
				for _, m := range pending {
					fmt.Fprintf(out, "  pending %d: %s\n", m.Version, m.Description)
				}
				return nil
			}

			if len(pending) == 0 {
				_, err = fmt.Fprintln(out, cli.FormatInfo("Database schema is up to date"))
				return err
			}

			slog.Info("Running database migrations", "database", settings.DatabasePath, "pending", len(pending))
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Applied %d migration(s)", len(pending))))
			return err
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show the schema version and pending migrations without applying them")

	return cmd
}
