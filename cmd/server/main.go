// Command server runs the identity verification oracle.
//
// main wires dependencies, starts the worker pool and the HTTP router, and
// keeps the server lifecycle small. Business logic lives in internal
// services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"verivote/internal/oracle/ledger"
	"verivote/internal/oracle/metrics"
	"verivote/internal/oracle/notify"
	"verivote/internal/oracle/pipeline"
	"verivote/internal/oracle/provider"
	"verivote/internal/oracle/queue"
	"verivote/internal/oracle/ratewindow"
	"verivote/internal/oracle/service"
	"verivote/internal/oracle/signaltoken"
	"verivote/internal/oracle/stats"
	"verivote/internal/oracle/store"
	"verivote/internal/platform/config"
	"verivote/internal/platform/httpserver"
	"verivote/internal/platform/logger"
	platformredis "verivote/internal/platform/redis"
	httptransport "verivote/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	oracleMetrics := metrics.New()

	requests, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store initialization failed", slog.Any("error", err))
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	authority := buildProvider(cfg)
	bridge := ledger.NewBridge(buildLedger(cfg), cfg.LedgerTimeout,
		ledger.WithLogger(log), ledger.WithMetrics(oracleMetrics))

	publisher, closePublisher, err := buildPublisher(cfg, log, oracleMetrics)
	if err != nil {
		log.Error("notification publisher initialization failed", slog.Any("error", err))
		os.Exit(1)
	}
	if closePublisher != nil {
		defer closePublisher()
	}

	window, closeRedis, err := buildRateWindow(cfg, requests)
	if err != nil {
		log.Error("rate window initialization failed", slog.Any("error", err))
		os.Exit(1)
	}
	if closeRedis != nil {
		defer closeRedis()
	}

	pipe := pipeline.New(requests, authority, bridge, cfg.ProviderTimeout,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(oracleMetrics),
		pipeline.WithPublisher(publisher))
	q := queue.New(pipe, cfg.Workers, cfg.QueueDepth,
		queue.WithLogger(log), queue.WithMetrics(oracleMetrics))

	aggregator := stats.New(requests, authority, bridge)

	oracle, err := service.New(requests, q, window, aggregator, bridge,
		service.WithLogger(log),
		service.WithMetrics(oracleMetrics),
		service.WithPublisher(publisher),
		service.WithRateLimit(cfg.RateMax))
	if err != nil {
		log.Error("service initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Requests left active by a previous run have no worker and no
	// recoverable task payload; fail them so their wallet/election pairs
	// are not stuck behind the duplicate guard.
	recovered, err := oracle.RecoverOrphaned(ctx)
	if err != nil {
		log.Error("orphaned request recovery failed", slog.Any("error", err))
		os.Exit(1)
	}
	if recovered > 0 {
		log.Warn("failed requests orphaned by a previous run", slog.Int("count", recovered))
	}

	var signals *signaltoken.Service
	if cfg.SignalSigningKey != "" {
		signals = signaltoken.New(cfg.SignalSigningKey, "verivote", "verivote-signals")
	}

	handler := httptransport.NewHandler(oracle, log)
	router := httptransport.NewRouter(handler, signals, httptransport.RouterConfig{
		AdminToken: cfg.AdminToken,
	}, log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		if err := q.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker pool exited", slog.Any("error", err))
		}
	}()

	go func() {
		log.Info("starting verification oracle", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

// buildStore selects PostgreSQL when a DSN is configured and the in-memory
// store otherwise.
func buildStore(ctx context.Context, cfg config.Server) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return store.NewInMemoryStore(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgresStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func buildProvider(cfg config.Server) provider.Provider {
	if cfg.ProviderURL == "" {
		return provider.NewSimulated()
	}
	return provider.NewRegistryClient(cfg.ProviderURL, cfg.ProviderTimeout)
}

func buildLedger(cfg config.Server) ledger.Ledger {
	if cfg.LedgerURL == "" {
		return ledger.NewSimulatedLedger()
	}
	return ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerTimeout)
}

// buildPublisher always emits on the in-process channel; Kafka is added when
// brokers are configured.
func buildPublisher(cfg config.Server, log *slog.Logger, m *metrics.Metrics) (notify.Publisher, func(), error) {
	channel := notify.NewChannelPublisher(256, m)
	drain(channel, log)

	if len(cfg.KafkaBrokers) == 0 {
		return channel, nil, nil
	}
	kafka, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic,
		notify.WithKafkaLogger(log), notify.WithKafkaMetrics(m))
	if err != nil {
		return nil, nil, err
	}
	closeKafka := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = kafka.Close(flushCtx)
	}
	return notify.Multi{channel, kafka}, closeKafka, nil
}

// drain logs channel notifications so the in-process consumer side is never
// left to fill up.
func drain(channel *notify.ChannelPublisher, log *slog.Logger) {
	go func() {
		for n := range channel.C() {
			log.Info("lifecycle notification",
				slog.String("kind", string(n.Kind)),
				slog.String("request_id", n.RequestID.String()),
				slog.String("status", n.Status.String()))
		}
	}()
}

func buildRateWindow(cfg config.Server, requests store.Store) (ratewindow.Window, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return ratewindow.NewStoreWindow(requests, cfg.RateWindow), nil, nil
	}
	return ratewindow.NewRedisWindow(client.Client, cfg.RateWindow), func() { client.Close() }, nil
}
