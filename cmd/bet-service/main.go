package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	bhttp "github.com/Ars-29/bet-app-v2/internal/bet-service/http"
	"github.com/Ars-29/bet-app-v2/internal/bet-service/odds"
	kpub "github.com/Ars-29/bet-app-v2/internal/bet-service/producer"
	"github.com/Ars-29/bet-app-v2/internal/ledger"
	"github.com/Ars-29/bet-app-v2/internal/shared/cache"
	"github.com/Ars-29/bet-app-v2/internal/shared/config"
	"github.com/Ars-29/bet-app-v2/internal/shared/db"
	skafka "github.com/Ars-29/bet-app-v2/internal/shared/kafka"
	"github.com/Ars-29/bet-app-v2/internal/shared/logger"
	"github.com/Ars-29/bet-app-v2/internal/shared/metrics"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (catálogo de odds corrente)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (topic wager_placed)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerPlaced)
	defer writer.Close()

	// deps
	led := ledger.NewPostgres(pg)
	repository := wagers.NewPostgres(pg, led)
	ov := odds.NewValidator(rdb)
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicWagerPlaced)

	// HTTP público
	api := bhttp.NewServer(log, repository, led, ov, publ, cfg.ResolutionBuffer)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(ctx)
}
