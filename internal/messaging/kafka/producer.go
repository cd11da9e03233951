package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// ProducerConfig задаёт параметры подключения producer.
type ProducerConfig struct {
	Brokers  []string
	ClientID string
	// Breaker — настройки circuit breaker; пустое Name означает значения по умолчанию.
	Breaker gobreaker.Settings
}

// Producer отправляет JSON-события консоли в Kafka синхронно.
type Producer struct {
	sync    sarama.SyncProducer
	breaker *gobreaker.CircuitBreaker
	logger  *log.Entry
	now     func() time.Time
}

// DefaultBreakerSettings размыкает цепь после пяти подряд неудачных отправок.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// ProducerSaramaConfig возвращает настройки идемпотентного producer с подтверждением от всех реплик.
func ProducerSaramaConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// NewProducer подключается к брокерам из cfg.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}

	sp, err := sarama.NewSyncProducer(cfg.Brokers, ProducerSaramaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducerWithBreaker(sp, cfg.Breaker), nil
}

func newProducerWith(sp sarama.SyncProducer) *Producer {
	return newProducerWithBreaker(sp, gobreaker.Settings{})
}

func newProducerWithBreaker(sp sarama.SyncProducer, settings gobreaker.Settings) *Producer {
	logger := log.WithField("component", "kafka-producer")
	if settings.Name == "" {
		settings = DefaultBreakerSettings()
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("kafka circuit breaker state changed")
		}
	}
	return &Producer{
		sync:    sp,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		now:     time.Now,
	}
}

// PublishEvent кодирует event в JSON и отправляет его с заголовками, упорядоченными по имени.
func (p *Producer) PublishEvent(topic, key string, event any, headers map[string]string) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event for %s: %w", topic, err)
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	record := make([]sarama.RecordHeader, 0, len(names))
	for _, name := range names {
		record = append(record, sarama.RecordHeader{Key: []byte(name), Value: []byte(headers[name])})
	}

	fields := log.Fields{"topic": topic, "key": key}
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   record,
		Timestamp: p.now(),
	}
	var (
		partition int32
		offset    int64
	)
	_, err = p.breaker.Execute(func() (interface{}, error) {
		var sendErr error
		partition, offset, sendErr = p.sync.SendMessage(msg)
		return nil, sendErr
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("send to %s: %w: %v", topic, domain.ErrBrokerUnavailable, err)
	case err != nil:
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("event sent to kafka")
	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
