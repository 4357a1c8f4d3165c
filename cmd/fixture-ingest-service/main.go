package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/fixture-ingest/publisher"
	"github.com/Ars-29/bet-app-v2/internal/fixture-ingest/service"
	"github.com/Ars-29/bet-app-v2/internal/shared/config"
	"github.com/Ars-29/bet-app-v2/internal/shared/logger"
	"github.com/Ars-29/bet-app-v2/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka Publisher
	pub := publisher.NewKafkaPublisher(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.TopicFixtureFinished,
		log,
	)
	defer pub.Close()

	// WS Client do feed do provedor
	wsClient := &service.WSClient{
		URL:       cfg.ProviderWSURL,
		Source:    cfg.ServiceName,
		Log:       log,
		Publisher: pub,
	}
	go wsClient.Start(ctx)

	// Metrics e health
	metrics.StartMetricsServer(cfg.MetricsPort, nil)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	time.Sleep(2 * time.Second)
}
