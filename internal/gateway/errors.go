package gateway

import (
	"fmt"
	"net/http"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// StatusError — неуспешный ответ upstream-сервиса.
type StatusError struct {
	Service string
	Method  string
	Path    string
	// Code — HTTP-статус; 0 означает, что ответа не было.
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s %s %s: %v", e.Service, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s %s: status %d: %v", e.Service, e.Method, e.Path, e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// classify сопоставляет HTTP-статус доменной ошибке.
func classify(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case code == http.StatusForbidden:
		return domain.ErrForbidden
	case code == http.StatusNotFound:
		return domain.ErrUpstreamNotFound
	case code == http.StatusMethodNotAllowed:
		return domain.ErrUpstreamUnsupported
	case code >= 500:
		return domain.ErrUpstreamUnavailable
	default:
		return domain.ErrUpstreamRejected
	}
}
