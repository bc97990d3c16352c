package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/pkg/sdk"
	"github.com/ccoin-network/pouw/worker"
)

const pathEnv = ".env"

type envConfig struct {
	LogLevel        string        `env:"WORKER_LOG_LEVEL"       envDefault:"info"`
	CoordinatorURL  string        `env:"WORKER_COORDINATOR_URL" envDefault:"http://localhost:7070"`
	PollInterval    time.Duration `env:"WORKER_POLL_INTERVAL"   envDefault:"5s"`
	TLSVerification bool          `env:"WORKER_TLS_VERIFICATION" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	coordinator := sdk.NewSDK(sdk.Config{
		CoordinatorURL:  cfg.CoordinatorURL,
		TLSVerification: cfg.TLSVerification,
	})

	w := worker.New(coordinator, dataset.NewSyntheticProvider(), cfg.PollInterval, logger)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Error running worker", slog.Any("error", err))

		return fmt.Errorf("worker run error: %w", err)
	}

	return nil
}
