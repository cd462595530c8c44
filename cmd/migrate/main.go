package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/database"
	"github.com/inkwell-notes/notes-api/internal/logger"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/migrations"
)

const seedTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the notes database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		gooseCmd("up", "Apply all pending migrations", func(db *sql.DB) error {
			if err := goose.Up(db, "."); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		gooseCmd("down", "Roll back the most recent migration", func(db *sql.DB) error {
			if err := goose.Down(db, "."); err != nil {
				return fmt.Errorf("failed to run down migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		}),
		gooseCmd("status", "Show applied and pending migrations", func(db *sql.DB) error {
			if err := goose.Status(db, "."); err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return nil
		}),
		gooseCmd("version", "Print the current schema version", func(db *sql.DB) error {
			if err := goose.Version(db, "."); err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			return nil
		}),
		createCmd(),
		seedOwnerCmd(),
	)
}

// gooseCmd wraps a goose operation that runs against the embedded migrations
func gooseCmd(use, short string, fn func(db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("failed to set dialect: %w", err)
			}
			return fn(db)
		},
	}
}

func createCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// New files go to disk, not the embedded FS
			goose.SetBaseFS(nil)
			if err := goose.Create(nil, dir, args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Printf("Migration created: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./migrations", "Directory to write the migration into")
	return cmd
}

func seedOwnerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "seed-owner",
		Short: "Create an owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			db, err := database.NewDatabase(&cfg.Database, log)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			authService := service.NewAuthService(
				repository.NewUserRepository(db),
				auth.NewPasswordHasher(cfg.JWT.BcryptCost),
				auth.NewTokenManager(&cfg.JWT),
				log,
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), seedTimeout)
			defer cancel()

			user, err := authService.SeedOwner(ctx, username, email, password)
			if err != nil {
				if msg := service.Message(err); msg != "" {
					return fmt.Errorf("failed to seed owner: %s", msg)
				}
				return fmt.Errorf("failed to seed owner: %w", err)
			}

			log.Info("owner account ready", zap.String("user_id", user.ID.String()))
			fmt.Printf("Owner %s created\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Owner username")
	cmd.Flags().StringVar(&email, "email", "", "Owner email address")
	cmd.Flags().StringVar(&password, "password", "", "Owner password (8-72 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func openDB() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
