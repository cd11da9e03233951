package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// RetryPolicy описывает повтор чтений при недоступности upstream.
// Мутации никогда не повторяются.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy возвращает политику по умолчанию для чтений.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 1
	}
	return p
}

func retryable(method string, err error) bool {
	return method == http.MethodGet && errors.Is(err, domain.ErrUpstreamUnavailable)
}

// run выполняет fn, повторяя только GET-запросы с ErrUpstreamUnavailable.
func (p RetryPolicy) run(ctx context.Context, method string, logger *log.Entry, fn func() (http.Header, error)) (http.Header, error) {
	p = p.normalized()
	delay := p.InitialDelay

	for attempt := 1; ; attempt++ {
		header, err := fn()
		if err == nil || attempt >= p.MaxAttempts || !retryable(method, err) {
			if err == nil && attempt > 1 {
				logger.WithField("attempt", attempt).Info("upstream read succeeded after retry")
			}
			return header, err
		}

		logger.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("upstream read failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return header, err
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.BackoffFactor)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
