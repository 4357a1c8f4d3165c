package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/ledger"
	"github.com/Ars-29/bet-app-v2/internal/settlement/engine"
	spub "github.com/Ars-29/bet-app-v2/internal/settlement/producer"
	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/shared/cache"
	"github.com/Ars-29/bet-app-v2/internal/shared/config"
	"github.com/Ars-29/bet-app-v2/internal/shared/db"
	skafka "github.com/Ars-29/bet-app-v2/internal/shared/kafka"
	"github.com/Ars-29/bet-app-v2/internal/shared/logger"
	"github.com/Ars-29/bet-app-v2/internal/shared/metrics"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
	ev "github.com/Ars-29/bet-app-v2/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres: apostas + carteiras
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de resultados finalizados
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka producer: eventos wager_settled (canal operacional)
	settledWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
	defer settledWriter.Close()

	// Kafka consumer: fixture_finished antecipa avaliações
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicFixtureFinished, "settlement-worker")
	defer reader.Close()

	var dlqWriter *skafka.Writer
	if cfg.TopicFixtureFinishedDLQ != "" {
		dlqWriter = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFixtureFinishedDLQ)
		defer dlqWriter.Close()
	}

	// deps
	led := ledger.NewPostgres(pg)
	store := wagers.NewPostgres(pg, led)
	gateway := provider.New(cfg.ProviderBaseURL, cfg.FetchTimeout, provider.NewResultCache(rdb), log)
	publ := spub.NewKafkaPublisher(settledWriter)

	eng := engine.New(log, store, gateway, publ, engine.Policy{
		PollInterval: cfg.SettlePollInterval,
		RetryDelay:   cfg.SettleRetryDelay,
		MaxHorizon:   cfg.SettleMaxHorizon,
		FetchTimeout: cfg.FetchTimeout,
		Workers:      cfg.SettleWorkers,
	})

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicFixtureFinished),
		zap.String("publish", cfg.TopicWagerSettled),
		zap.Duration("poll_interval", cfg.SettlePollInterval),
		zap.Duration("retry_delay", cfg.SettleRetryDelay),
	)

	// Scheduler durável: sweep de recuperação + polling
	go eng.Run(ctx)

	// Loop do consumer: cada fixture encerrada dispara a avaliação das
	// apostas pendentes daquela partida
	go func() {
		for {
			_, value, err := skafka.ReadNext(ctx, reader)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("kafka read", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			var finished ev.FixtureFinished
			if jerr := json.Unmarshal(value, &finished); jerr != nil {
				log.Error("unmarshal fixture_finished", zap.Error(jerr))
				if dlqWriter != nil {
					_ = skafka.WriteJSON(ctx, dlqWriter, "unparseable", value)
				}
				continue
			}

			if err := eng.TriggerFixture(ctx, finished.FixtureID); err != nil {
				log.Error("trigger fixture", zap.String("fixture_id", finished.FixtureID), zap.Error(err))
				if dlqWriter != nil {
					_ = skafka.WriteJSON(ctx, dlqWriter, finished.FixtureID, value)
				}
			}
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	time.Sleep(2 * time.Second)
}
