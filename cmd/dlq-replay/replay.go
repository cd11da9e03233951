package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/messaging/kafka"
)

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type consumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// deadLetter — payload, который outbox worker кладёт в DLQ-конверт.
type deadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

var errNotDeadLetter = errors.New("message is not an outbox dead letter")

type summary struct {
	Scanned  int
	Replayed int
	Skipped  int
}

func (s *summary) add(o summary) {
	s.Scanned += o.Scanned
	s.Replayed += o.Replayed
	s.Skipped += o.Skipped
}

type replayer struct {
	client   offsetClient
	consumer consumerSource
	producer replayProducer
	opts     options
	logger   *log.Entry
	now      func() time.Time
}

func newReplayer(client offsetClient, consumer consumerSource, producer replayProducer, opts options, logger *log.Entry) *replayer {
	if logger == nil {
		logger = log.WithField("component", "dlq-replay")
	}
	return &replayer{
		client:   client,
		consumer: consumer,
		producer: producer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Run читает партиции DLQ по возрастанию номера, пока не наберётся limit сообщений.
func (r *replayer) Run(ctx context.Context) (summary, error) {
	var total summary
	if r.client == nil || r.consumer == nil {
		return total, fmt.Errorf("kafka client and consumer are required")
	}
	if r.opts.execute && r.producer == nil {
		return total, fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := r.client.Partitions(r.opts.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", r.opts.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		remaining := r.opts.limit - total.Scanned
		if remaining <= 0 {
			break
		}
		stats, err := r.scanPartition(ctx, partition, remaining)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	r.logger.WithFields(log.Fields{
		"execute":  r.opts.execute,
		"scanned":  total.Scanned,
		"replayed": total.Replayed,
		"skipped":  total.Skipped,
	}).Info("dlq replay finished")
	return total, nil
}

func (r *replayer) scanPartition(ctx context.Context, partition int32, limit int) (summary, error) {
	var stats summary

	oldest, err := r.client.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("oldest offset of partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("newest offset of partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.opts.fromNewest && newest-int64(limit) > oldest {
		start = newest - int64(limit)
	}

	pc, err := r.consumer.ConsumePartition(r.opts.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.opts.idleTimeout)
	defer idle.Stop()

	errs := pc.Errors()

	for stats.Scanned < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if cerr != nil {
				return stats, fmt.Errorf("partition %d: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.opts.idleTimeout)

			stats.Scanned++
			replayed, err := r.handle(msg)
			if err != nil {
				return stats, err
			}
			if replayed {
				stats.Replayed++
			} else {
				stats.Skipped++
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idle.C:
			return stats, nil
		}
	}
	return stats, nil
}

// handle возвращает false для сообщений, которые нельзя переиграть; ошибка означает сбой публикации.
func (r *replayer) handle(msg *sarama.ConsumerMessage) (bool, error) {
	out, err := r.buildReplay(msg)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip dlq message")
		return false, nil
	}

	fields := log.Fields{
		"partition":    msg.Partition,
		"offset":       msg.Offset,
		"target_topic": out.Topic,
	}
	if !r.opts.execute {
		r.logger.WithFields(fields).Info("dlq replay candidate")
		return true, nil
	}
	if _, _, err := r.producer.SendMessage(out); err != nil {
		return false, fmt.Errorf("publish replay of offset %d: %w", msg.Offset, err)
	}
	r.logger.WithFields(fields).Debug("dlq message replayed")
	return true, nil
}

// buildReplay восстанавливает исходный конверт консоли из DLQ-записи.
func (r *replayer) buildReplay(msg *sarama.ConsumerMessage) (*sarama.ProducerMessage, error) {
	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotDeadLetter, err)
	}
	if isEmptyJSON(envelope.Payload) {
		return nil, errNotDeadLetter
	}

	var dead deadLetter
	if err := json.Unmarshal(envelope.Payload, &dead); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotDeadLetter, err)
	}
	if isEmptyJSON(dead.Payload) {
		return nil, fmt.Errorf("%w: original payload is missing", errNotDeadLetter)
	}

	replay := kafka.Envelope{
		ID:            firstNonEmpty(dead.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dead.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dead.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dead.EventType, envelope.EventType),
		Payload:       dead.Payload,
		PublishedAt:   r.now().UTC(),
	}
	value, err := json.Marshal(replay)
	if err != nil {
		return nil, fmt.Errorf("encode replay envelope: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic: r.opts.targetTopic,
		Key:   sarama.StringEncoder(firstNonEmpty(replay.AggregateID, replay.ID)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(kafka.HeaderEventType), Value: []byte(replay.EventType)},
			{Key: []byte(kafka.HeaderAggregateType), Value: []byte(replay.AggregateType)},
			{Key: []byte(kafka.HeaderReplayedFrom), Value: []byte(r.opts.sourceTopic)},
		},
		Timestamp: replay.PublishedAt,
	}, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
