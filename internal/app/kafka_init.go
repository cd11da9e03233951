package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/crm-console/internal/metrics"
	"github.com/vladislavdragonenkov/crm-console/internal/service/outbox"
	"github.com/vladislavdragonenkov/crm-console/internal/version"
)

// initKafkaProducer создаёт producer для событий консоли.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:  brokers,
		ClientID: version.UserAgent(),
	})
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// newOutboxWorker связывает outbox с Kafka: основной topic и DLQ.
func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, m *metrics.ConsoleMetrics, logger *log.Entry) *outbox.Worker {
	return outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic)),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(m),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)
}

// newOutboxCleaner удаляет из outbox опубликованные и сброшенные в DLQ записи старше retention.
func newOutboxCleaner(cfg Config, repo domain.OutboxCleaner, m *metrics.ConsoleMetrics, logger *log.Entry) *outbox.Cleaner {
	return outbox.NewCleaner(
		repo,
		outbox.WithCleanupLogger(logger.WithField("component", "outbox-cleaner")),
		outbox.WithCleanupMetrics(m),
		outbox.WithCleanupInterval(cfg.OutboxCleanupInterval),
		outbox.WithRetention(cfg.OutboxRetention),
	)
}
