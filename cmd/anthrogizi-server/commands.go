package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
	"github.com/anthrogizi/anthrogizi/internal/config"
	"github.com/anthrogizi/anthrogizi/internal/platform/db"
	"github.com/anthrogizi/anthrogizi/internal/refdata"
	"github.com/anthrogizi/anthrogizi/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run records database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to a migrations directory (default: bundled migrations)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to a migrations directory (default: bundled migrations)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// withMigrator opens the configured records database and hands a migrator
// for it to fn.
func withMigrator(ctx context.Context, dir string, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch cfg.RecordsBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		fsys, sub := migrationSource(dir, migrations.PostgresDir)
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, fsys, sub))

	case config.BackendSQLite:
		fsys, sub := migrationSource(dir, migrations.SQLiteDir)
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return fn(ctx, db.NewSQLiteMigrator(sqlDB, fsys, sub))
	}
	return fmt.Errorf("RECORDS_BACKEND %q has no database to migrate", cfg.RecordsBackend)
}

func migrationSource(dir, bundled string) (fs.FS, string) {
	if dir != "" {
		return os.DirFS(dir), "."
	}
	return migrations.FS, bundled
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status, applied := "pending", "-"
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, applied)
	}
	tw.Flush()
}

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect reference tables",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate reference tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ref, err := refdata.Load(dir)
			if err != nil {
				return err
			}
			printTableCoverage(cmd.OutOrStdout(), ref)
			return nil
		},
	}
	checkCmd.Flags().String("dir", "", "Reference data directory containing "+refdata.ManifestName+" (default: bundled sample tables)")
	cmd.AddCommand(checkCmd)

	return cmd
}

func printTableCoverage(w io.Writer, ref *anthro.ReferenceTable) {
	if src := ref.Source(); src != "" {
		fmt.Fprintf(w, "source: %s\n", src)
	}
	if ref.Illustrative() {
		fmt.Fprintln(w, "warning: illustrative sample data, not for clinical use")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tFROM\tTO")
	for _, key := range ref.Keys() {
		tbl, err := ref.Table(key.Indicator, key.Sex)
		if err != nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%g\t%g\n", key, tbl.Len(), tbl.Min(), tbl.Max())
	}
	for _, key := range anthro.AllTableKeys() {
		if _, err := ref.Table(key.Indicator, key.Sex); err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\n", key)
		}
	}
	tw.Flush()
}
