package outbox

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
	defaultRetention        = 24 * time.Hour
)

// CleanupMetrics принимает результаты прогонов очистки.
type CleanupMetrics interface {
	RecordOutboxCleanup(result string, deleted int)
}

type noopCleanupMetrics struct{}

func (noopCleanupMetrics) RecordOutboxCleanup(string, int) {}

// CleanerOptions задаёт параметры очистки outbox.
type CleanerOptions struct {
	Logger    *log.Entry
	Metrics   CleanupMetrics
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

// CleanerOption настраивает Cleaner.
type CleanerOption func(*CleanerOptions)

// WithCleanupLogger задаёт logger для очистки.
func WithCleanupLogger(logger *log.Entry) CleanerOption {
	return func(opts *CleanerOptions) {
		opts.Logger = logger
	}
}

// WithCleanupMetrics задаёт приёмник метрик очистки.
func WithCleanupMetrics(m CleanupMetrics) CleanerOption {
	return func(opts *CleanerOptions) {
		opts.Metrics = m
	}
}

// WithCleanupInterval задаёт интервал между прогонами.
func WithCleanupInterval(interval time.Duration) CleanerOption {
	return func(opts *CleanerOptions) {
		opts.Interval = interval
	}
}

// WithCleanupBatchSize задаёт размер порции одного удаления.
func WithCleanupBatchSize(batchSize int) CleanerOption {
	return func(opts *CleanerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithRetention задаёт, сколько хранить sent/failed записи.
func WithRetention(retention time.Duration) CleanerOption {
	return func(opts *CleanerOptions) {
		opts.Retention = retention
	}
}

// Cleaner периодически удаляет обработанные сообщения outbox старше retention.
type Cleaner struct {
	repo      domain.OutboxCleaner
	logger    *log.Entry
	metrics   CleanupMetrics
	interval  time.Duration
	batchSize int
	retention time.Duration
	now       func() time.Time
}

// NewCleaner создаёт воркер очистки outbox.
func NewCleaner(repo domain.OutboxCleaner, options ...CleanerOption) *Cleaner {
	opts := CleanerOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
		Retention: defaultRetention,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-cleaner")
	}
	var metrics CleanupMetrics = noopCleanupMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &Cleaner{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		retention: opts.Retention,
		now:       time.Now,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (c *Cleaner) Run(ctx context.Context) {
	if c.repo == nil {
		c.logger.Warn("outbox cleaner is disabled: repo is nil")
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	deleted, err := c.Purge(ctx, c.now().UTC().Add(-c.retention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.metrics.RecordOutboxCleanup("error", deleted)
		c.logger.WithError(err).Warn("outbox cleanup run failed")
		return
	}

	c.metrics.RecordOutboxCleanup("ok", deleted)
	if deleted > 0 {
		c.logger.WithField("deleted", deleted).Info("outbox cleanup completed")
	}
}

// Purge удаляет обработанные записи, обновлённые не позже before, порциями batchSize.
func (c *Cleaner) Purge(ctx context.Context, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := c.repo.DeleteProcessedBefore(before, c.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < c.batchSize {
			return total, nil
		}
	}
}
