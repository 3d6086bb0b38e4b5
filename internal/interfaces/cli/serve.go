package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/turtacn/flexophore/internal/application/flexophore"
	"github.com/turtacn/flexophore/internal/config"
	"github.com/turtacn/flexophore/internal/infrastructure/database/redis"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/prometheus"
	flexhttp "github.com/turtacn/flexophore/internal/interfaces/http"
	"github.com/turtacn/flexophore/internal/interfaces/http/handlers"
	"github.com/turtacn/flexophore/internal/interfaces/http/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the descriptor HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cliCtx)
		},
	}
}

// runServe wires metrics, the optional Redis descriptor cache, the service
// and the router, then serves until ctx is cancelled.
func runServe(ctx context.Context, cliCtx *CLIContext) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	var (
		collector prometheus.MetricsCollector
		metrics   *prometheus.FlexophoreMetrics
		checkers  []handlers.HealthChecker
		opts      = []app.Option{}
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		collector = c
		metrics = prometheus.NewFlexophoreMetrics(c)
		opts = append(opts, app.WithMetrics(metrics))
	}

	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		cache := redis.NewDescriptorCache(client, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		opts = append(opts, app.WithCache(cache))
		checkers = append(checkers, handlers.CheckFunc{Component: "redis", Fn: cache.Ping})
	}

	svc, err := newService(cfg, logger, opts...)
	if err != nil {
		return err
	}
	logger.Info("descriptor service ready",
		logging.Int("conformers", svc.Settings().Conformers),
		logging.Int("table_version", svc.TableVersion()),
		logging.Bool("cache", cfg.Redis.Enabled()),
		logging.Bool("metrics", cfg.Metrics.Enabled))

	if cliCtx.ConfigPath != "" {
		watchLogLevel(cliCtx.ConfigPath, logger)
	}

	router := flexhttp.NewRouter(flexhttp.RouterConfig{
		DescriptorHandler: handlers.NewDescriptorHandler(svc, logger, cfg.Server.MaxBodySize),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		Logger:            logger,
		LoggingConfig:     middleware.DefaultLoggingConfig(),
		Metrics:           metrics,
		MetricsCollector:  collector,
		MetricsPath:       cfg.Metrics.Path,
	})
	server := flexhttp.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")
	return server.Stop(context.Background())
}

// watchLogLevel applies log level changes from the config file at runtime.
// Generation parameters stay fixed for the process lifetime.
func watchLogLevel(path string, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level changed", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config revision", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
