package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/flightwatch/internal/api"
	"github.com/miradorstack/flightwatch/internal/cache"
	"github.com/miradorstack/flightwatch/internal/config"
	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/metrics"
	"github.com/miradorstack/flightwatch/internal/monitor"
	"github.com/miradorstack/flightwatch/internal/services"
	"github.com/miradorstack/flightwatch/internal/sink"
	"github.com/miradorstack/flightwatch/internal/source"
	"github.com/miradorstack/flightwatch/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting flightwatch",
		slog.String("address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("source", cfg.Source.Kind),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	actions, err := engine.LoadActionPack(cfg.Rules.ActionsPath)
	if err != nil {
		logger.Error("failed to load action pack", slog.String("path", cfg.Rules.ActionsPath), slog.Any("error", err))
		os.Exit(1)
	}
	ruleEngine := engine.NewRuleEngine(engine.WithActionOverrides(actions))
	engineService := services.NewEngineService(logger, ruleEngine)

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
			KeyPrefix:    cfg.Cache.KeyPrefix,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, deduplicating in memory", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	board := sink.NewBoard(cfg.Sinks.BoardCapacity)
	sinks := []sink.Sink{board}
	if cfg.Sinks.Log.Enabled {
		sinks = append(sinks, sink.NewLog(logger))
	}
	var kafkaSink *sink.Kafka
	if cfg.Sinks.Kafka.Enabled {
		kafkaSink = sink.NewKafka(sink.KafkaConfig{
			Brokers:      cfg.Sinks.Kafka.Brokers,
			Topic:        cfg.Sinks.Kafka.Topic,
			BatchTimeout: cfg.Sinks.Kafka.BatchTimeout,
			WriteTimeout: cfg.Sinks.Kafka.WriteTimeout,
		})
		sinks = append(sinks, kafkaSink)
	}
	var out sink.Sink = sink.NewMulti(logger, sinks...)
	if cfg.Sinks.Dedup.Enabled {
		out = sink.NewDedup(out, cacheProvider, cfg.Sinks.Dedup.TTL, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src source.Source
	switch cfg.Source.Kind {
	case config.SourceMQTT:
		mqttSource := source.NewMQTT(source.MQTTConfig{
			Broker:         cfg.Source.MQTT.Broker,
			ClientID:       cfg.Source.MQTT.ClientID,
			Topic:          cfg.Source.MQTT.Topic,
			QoS:            cfg.Source.MQTT.QoS,
			Username:       cfg.Source.MQTT.Username,
			Password:       cfg.Source.MQTT.Password,
			ConnectTimeout: cfg.Source.MQTT.ConnectTimeout,
			QueueSize:      cfg.Source.MQTT.QueueSize,
		}, logger)
		if err := mqttSource.Connect(ctx); err != nil {
			logger.Error("failed to connect snapshot source", slog.Any("error", err))
			os.Exit(1)
		}
		defer mqttSource.Close()
		src = mqttSource
	default:
		replay, err := source.LoadReplay(cfg.Source.ReplayPath)
		if err != nil {
			logger.Error("failed to load replay profile", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("replaying flight profile", slog.String("profile", replay.Name()), slog.Int("frames", replay.Len()))
		src = replay
	}

	mon, err := monitor.New(src, engineService, out, cfg.Source.Schedule, logger)
	if err != nil {
		logger.Error("failed to create monitor", slog.Any("error", err))
		os.Exit(1)
	}
	if err := mon.Start(ctx); err != nil {
		logger.Error("failed to start monitor", slog.Any("error", err))
		os.Exit(1)
	}

	server, err := api.NewServer(cfg.Server, engineService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddress,
		Handler:      api.NewRouter(engineService, board, mon, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	mon.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Warn("kafka writer close", slog.Any("error", err))
		}
	}

	summary := board.Summary()
	logger.Info("flightwatch stopped",
		slog.Int("active_anomalies", summary.Active),
		slog.String("system_health", string(summary.Health)),
		slog.Duration("evaluation_p95", engineService.LatencyP95()),
	)
}
