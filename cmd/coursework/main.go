// Package main boots the coursework core: configuration, logging, the
// database and its migrations, the services, the task dispatcher with its
// interactive loop, and the optional diagnostics listener.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml or ./configs/config.yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	runErr := app.run(ctx)
	app.shutdown()
	if runErr != nil {
		logr.Error("application stopped with error", "error", runErr)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
