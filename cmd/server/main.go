package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/config"
	"github.com/seirennn/tradeworkstation-waitlist/domain"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("Waitlist server stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *log.Logger, args []string) error {
	var autoMigrate bool

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.BoolVar(&autoMigrate, "auto-migrate", false, "create missing tables on startup (development only)")
	fs.BoolVar(&autoMigrate, "m", false, "shorthand for --auto-migrate")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger.Info("Waitlist server starting", "auto_migrate", autoMigrate)

	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		return fmt.Errorf("load application configuration: %w", err)
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")

	timeout := utils.GetPositiveDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	logger.Info("Waitlist server stopped")
	return nil
}
