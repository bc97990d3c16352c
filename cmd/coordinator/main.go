package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	pouw "github.com/ccoin-network/pouw"
	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/coordinator/api"
	"github.com/ccoin-network/pouw/coordinator/middleware"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/mqtt"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/queue"
)

const (
	svcName       = "coordinator"
	defHTTPPort   = "7070"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel    string        `env:"COORDINATOR_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string        `env:"COORDINATOR_INSTANCE_ID"`
	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT" envDefault:"30s"`
	ClientID    string        `env:"COORDINATOR_CLIENT_ID"`
	ClientKey   string        `env:"COORDINATOR_CLIENT_KEY"`
	ChannelID   string        `env:"COORDINATOR_CHANNEL_ID"`
	ConfigPath  string        `env:"COORDINATOR_CONFIG_PATH"  envDefault:"config.toml"`
	SeedModel   bool          `env:"COORDINATOR_SEED_MODEL"   envDefault:"true"`
	OTELURL     url.URL       `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64       `env:"COORDINATOR_TRACE_RATIO"  envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	// Broker credentials can come from a provisioned config file when
	// the environment does not set them.
	if cfg.ChannelID == "" && cfg.ConfigPath != "" {
		if fileCfg, err := pouw.LoadConfig(cfg.ConfigPath); err == nil {
			cfg.ClientID = fileCfg.Coordinator.ClientID
			cfg.ClientKey = fileCfg.Coordinator.ClientKey
			cfg.ChannelID = fileCfg.Coordinator.ChannelID
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	// The event stream is optional: without a broker address the
	// coordinator serves the API and keeps lifecycle events local.
	var mqttPubSub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.ClientID, cfg.ClientKey, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		mqttPubSub = ps
	}

	registry := model.NewRegistry(storage.NewInMemoryStorage(), storage.NewInMemoryStorage())
	svc := coordinator.NewService(
		queue.New(),
		registry,
		dataset.NewSyntheticProvider(),
		compute.New(registry),
		storage.NewInMemoryStorage(),
		mqttPubSub,
		cfg.ChannelID,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if cfg.SeedModel {
		if _, err := svc.RegisterModel(ctx, model.Config{
			ModelID:      "mnist_mlp",
			Architecture: "mlp",
			TaskType:     model.Classification,
			Domain:       "vision",
			InputShape:   []int{784},
			OutputShape:  []int{10},
			Hyperparameters: map[string]any{
				"hidden_sizes": []int{256, 128},
			},
		}); err != nil {
			logger.Error("failed to seed default model", slog.String("error", err.Error()))

			return
		}
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
