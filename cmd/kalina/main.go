// kalina is the admin CLI: schema migrations and database setup.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kalina-news/kalina/internal/config"
	"github.com/kalina-news/kalina/internal/db"
	"github.com/kalina-news/kalina/internal/migrate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kalina",
		Short: "Kalina News database administration",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			viper.AutomaticEnv()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().String("database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	root.PersistentFlags().String("sqlite-path", "", "SQLite file path (defaults to SQLITE_PATH or kalina.db)")
	_ = viper.BindPFlag("DATABASE_URL", root.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("SQLITE_PATH", root.PersistentFlags().Lookup("sqlite-path"))

	root.AddCommand(migrateCmd(), statusCmd(), initDBCmd(), createMigrationCmd())
	return root
}

func openDB() (*sqlx.DB, error) {
	cfg := config.FromEnv()
	if v := viper.GetString("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := viper.GetString("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	return db.Connect(cfg)
}

func newMigrator() (*migrate.Migrator, *sqlx.DB, error) {
	conn, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	m, err := migrate.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return m, conn, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, conn, err := newMigrator()
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := m.Up(context.Background())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				cmd.Println("Nothing to apply, schema is up to date.")
				return nil
			}
			for _, v := range applied {
				cmd.Printf("Applied migration %d\n", v)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, conn, err := newMigrator()
			if err != nil {
				return err
			}
			defer conn.Close()

			st, err := m.Status(context.Background())
			if err != nil {
				return err
			}
			cmd.Printf("Current version: %d\n", st.Current)
			cmd.Printf("Migrations:      %d total, %d pending\n", st.Total, len(st.Pending))
			for _, v := range st.Pending {
				cmd.Printf("  pending: %d\n", v)
			}
			return nil
		},
	}
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the full schema directly on a fresh database (escape hatch)",
		Long: `init-db executes the entire embedded schema in one transaction and stamps
the latest version, without recording step-by-step history. The canonical
setup path is 'kalina migrate'; use init-db only on a fresh database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, conn, err := newMigrator()
			if err != nil {
				return err
			}
			defer conn.Close()

			version, err := m.InitDirect(context.Background())
			if err != nil {
				return err
			}
			cmd.Printf("Schema created, stamped at version %d\n", version)
			return nil
		},
	}
}

func createMigrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-migration <name>",
		Short: "Write numbered migration stubs for both dialects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			paths, err := migrate.CreateFiles(dir, args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				cmd.Printf("Created %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "internal/migrate/migrations", "base directory for migration files")
	return cmd
}
