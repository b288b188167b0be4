package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Veraticus/plancost/internal/cli"
	"github.com/Veraticus/plancost/internal/config"
	"github.com/Veraticus/plancost/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

With --backup a consistent copy of the database is written before the
schema is touched.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().String("backup", "", "write a copy of the database to this path first")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetString("backup")

	dbPath, err := config.DatabasePath()
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}

	slog.Info("Starting database migration", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if status {
		fmt.Fprintf(out, "Base de données : %s\nVersion actuelle : %d\nDernière version : %d\n",
			dbPath, current, storage.ExpectedSchemaVersion)
		return nil
	}

	if backup = strings.TrimSpace(backup); backup != "" {
		backup, err = filepath.Abs(config.ExpandPath(backup))
		if err != nil {
			return fmt.Errorf("invalid backup path: %w", err)
		}
		if err := store.Backup(ctx, backup); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Copie de sauvegarde écrite dans "+backup))
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Schéma à jour (version %d)", storage.ExpectedSchemaVersion)))
	return nil
}
