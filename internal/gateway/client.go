package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/version"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Observer получает результат каждого вызова upstream (реализуется metrics.ConsoleMetrics).
type Observer interface {
	ObserveUpstream(service, method string, code int, duration time.Duration)
}

// Options задаёт параметры HTTP-клиента upstream.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Observer   Observer
	Logger     *log.Entry
	// Retry применяется только к GET; при нулевом значении делается одна попытка.
	Retry RetryPolicy
}

type client struct {
	service  string
	baseURL  string
	http     *http.Client
	observer Observer
	retry    RetryPolicy
	logger   *log.Entry
}

func newClient(service string, opts Options) *client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "gateway")
	}
	return &client{
		service:  service,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		observer: opts.Observer,
		retry:    opts.Retry,
		logger:   logger.WithField("upstream", service),
	}
}

// do выполняет JSON-запрос. При body == nil запрос уходит без тела, при out == nil ответ игнорируется.
// Возвращает заголовки ответа, чтобы вызывающий мог переслать Set-Cookie.
func (c *client) do(ctx context.Context, method, path, cookie string, body, out any) (http.Header, error) {
	logger := c.logger.WithFields(log.Fields{"method": method, "path": path})
	return c.retry.run(ctx, method, logger, func() (http.Header, error) {
		return c.doOnce(ctx, method, path, cookie, body, out)
	})
}

func (c *client) doOnce(ctx context.Context, method, path, cookie string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		c.logger.WithError(err).WithFields(log.Fields{"method": method, "path": path}).Warn("upstream request failed")
		return nil, &StatusError{Service: c.service, Method: method, Path: path, Err: fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)}
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(method, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WithFields(log.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(detail)),
		}).Debug("upstream returned error status")
		return resp.Header, &StatusError{Service: c.service, Method: method, Path: path, Code: resp.StatusCode, Err: classify(resp.StatusCode)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, &StatusError{Service: c.service, Method: method, Path: path, Code: resp.StatusCode, Err: fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.Header, &StatusError{Service: c.service, Method: method, Path: path, Code: resp.StatusCode, Err: fmt.Errorf("%w: decode body: %v", domain.ErrUpstreamMalformed, err)}
	}
	return resp.Header, nil
}

func (c *client) observe(method string, code int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(c.service, method, code, time.Since(start))
	}
}

// Ping проверяет доступность upstream: любой HTTP-ответ, кроме 5xx, считается живым.
func (c *client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", c.service, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s answered %d", c.service, resp.StatusCode)
	}
	return nil
}
