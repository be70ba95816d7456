package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/broker"
	"spa-comments/internal/config"
	"spa-comments/internal/pkg/logger"
	"spa-comments/internal/search"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("[indexer] no .env file found, using environment variables")
	}

	cfg := config.Load()
	logEntry := logger.New(cfg.LogLevel, cfg.Environment).WithField("process", "indexer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	es, err := config.NewElasticsearchClient(cfg)
	if err != nil {
		logEntry.Fatalf("[indexer] error creating the client: %v", err)
	}

	indexer := search.NewESIndexer(es, cfg.ElasticsearchIndex)
	if err := indexer.EnsureIndex(ctx); err != nil {
		logEntry.Fatalf("[indexer] failed to ensure index %s: %v", cfg.ElasticsearchIndex, err)
	}

	subscriber, err := newSubscriber(cfg)
	if err != nil {
		logEntry.Fatalf("[indexer] failed to connect to broker: %v", err)
	}
	defer subscriber.Close()

	consumer := search.NewConsumer(indexer, logEntry)

	logEntry.Infof("[indexer] consuming via %s into %s", cfg.Broker, cfg.ElasticsearchIndex)
	if err := subscriber.Subscribe(ctx, consumer.Handle); err != nil {
		logEntry.Errorf("[indexer] subscription stopped: %v", err)
		return
	}
	logEntry.Info("[indexer] stopped")
}

func newSubscriber(cfg *config.Config) (broker.Subscriber, error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		return broker.NewRabbitMQ(broker.RabbitMQConfig{URL: cfg.RabbitMQURL, QueueName: cfg.RabbitMQQueue})
	case config.BrokerKafka:
		return broker.NewKafkaSubscriber(broker.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}), nil
	}
	return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
}
