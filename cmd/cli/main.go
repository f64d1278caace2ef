package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/config"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/migrations"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		if err := runMigrate(logger, args[1:]); err != nil {
			logger.Error("Migrate command failed", "error", err.Error())
			os.Exit(1)
		}
		return

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger, args []string) error {
	op := "up"
	if len(args) > 0 {
		op = strings.ToLower(args[0])
	}

	steps := 1
	switch op {
	case "up", "version":
	case "down":
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
	default:
		printUsage()
		return fmt.Errorf("unknown migrate subcommand %q", op)
	}

	// The SQL files target postgres; sqlite stores are created with --auto-migrate.
	if driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))); driver != "" && driver != config.DBDriverPostgres {
		return fmt.Errorf("migrate supports only the postgres driver, got %q", driver)
	}

	db, err := config.NewDatabase(logger, &config.DBConfig{})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	cfg := migrations.Config{
		Dir:    utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"),
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return migrate(ctx, logger, sqlDB, cfg, op, steps)
}

func migrate(ctx context.Context, logger *log.Logger, sqlDB *sql.DB, cfg migrations.Config, op string, steps int) error {
	switch op {
	case "down":
		if err := migrations.Down(ctx, sqlDB, cfg, steps); err != nil {
			return err
		}
		logger.Info("Database migrations rolled back", "steps", steps)
	case "version":
		version, dirty, err := migrations.Version(ctx, sqlDB, cfg)
		if err != nil {
			return err
		}
		logger.Info("Database schema version", "version", version, "dirty", dirty)
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		if err := migrations.Up(ctx, sqlDB, cfg); err != nil {
			return err
		}
		logger.Info("Database migrations completed")
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate [up]        Apply all pending database migrations and exit")
	fmt.Println("  migrate down [n]    Roll back the last n migrations (default 1)")
	fmt.Println("  migrate version     Print the current schema version")
}
