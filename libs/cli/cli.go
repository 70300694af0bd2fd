// Package cli holds the cobra plumbing shared by the service binaries.
package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinica-estetica/turnos/libs/config"
	"github.com/clinica-estetica/turnos/libs/db"
)

const configFlag = "config"

// NewRoot returns a root command with a persistent --config flag. The file
// is optional; environment variables always win over it.
func NewRoot(use, short string) *cobra.Command {
	root := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(configFlag, envOr("CONFIG_FILE", ".env"), "dotenv-style config file")
	return root
}

// Execute runs root and exits non-zero on error.
func Execute(root *cobra.Command) {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Source loads the configuration named by --config.
func Source(cmd *cobra.Command) *config.Source {
	file, err := cmd.Flags().GetString(configFlag)
	if err != nil || file == "" {
		return config.Default()
	}
	return config.Load(file)
}

// OpenDatabase connects using DATABASE_URL and the DB_* pool settings. The
// pool reports SERVICE_NAME as its application name.
func OpenDatabase(ctx context.Context, src *config.Source) (*db.Pool, error) {
	url, err := src.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	maxConns, err := src.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := src.Int("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, err
	}
	lifetime, err := src.Duration("DB_MAX_CONN_LIFETIME", 0)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, url, db.PoolOptions{
		AppName:         src.String("SERVICE_NAME", ""),
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: lifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

// MigrateCommand builds "migrate up" and "migrate status" over the embedded
// migrations in fsys/dir.
func MigrateCommand(fsys fs.FS, dir string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := OpenDatabase(ctx, Source(cmd))
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, fsys, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := OpenDatabase(ctx, Source(cmd))
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, fsys, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			PrintStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
