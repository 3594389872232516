package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/auth"
	"github.com/opsdeck/opsdeck/internal/client"
	"github.com/opsdeck/opsdeck/internal/common/config"
	"github.com/opsdeck/opsdeck/internal/common/logging"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/observability"
	"github.com/opsdeck/opsdeck/internal/ratelimit"
	pushsignal "github.com/opsdeck/opsdeck/internal/signal"
	"github.com/opsdeck/opsdeck/internal/store/rest"
	"github.com/opsdeck/opsdeck/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Init(
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Logging.EnableFile,
		cfg.Logging.FilePath,
	)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("opsdeck client starting", zap.String("version", version.Client()))

	identity, err := auth.ParseIdentity(cfg.API.Token)
	if err != nil {
		return fmt.Errorf("parse identity: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	limiter := ratelimit.NewLimiter(ratelimit.LimitConfig{PerMinute: 60, Burst: 10}, true)
	limiter.SetLimit("typing", ratelimit.LimitConfig{
		PerMinute: cfg.Typing.SignalsPerMinute,
		Burst:     cfg.Typing.Burst,
	})

	storeClient, err := rest.NewClient(cfg.API, limiter, metrics, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("build store client: %w", err)
	}

	transport, err := buildTransport(cfg, logger)
	if err != nil {
		return fmt.Errorf("build signal transport: %w", err)
	}
	defer func() {
		_ = transport.Close()
	}()

	app := client.New(cfg, client.Deps{
		Identity: identity,
		Stores: client.Stores{
			Messages: storeClient,
			Presence: storeClient,
			Calls:    storeClient,
		},
		Transport: transport,
		Notifier:  notify.NewLogNotifier(logger.Named("notice")),
		Metrics:   metrics,
		Limiter:   limiter,
		Logger:    logger,
	})

	app.SetScope(ctx, os.Getenv("FEED_SCOPE"))

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	logger.Info("opsdeck client stopped")
	return nil
}

func buildTransport(cfg *config.Config, logger *zap.Logger) (pushsignal.Transport, error) {
	switch cfg.Signal.Transport {
	case "redis":
		return pushsignal.NewRedisTransport(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			logger.Named("signal"),
		)
	default:
		return pushsignal.NewWebsocketTransport(
			cfg.Signal.WebsocketURL,
			cfg.API.Token,
			logger.Named("signal"),
		), nil
	}
}
