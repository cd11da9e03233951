package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/activity"
)

const maxBodyBytes = 1 << 20

// errorBody — тело ответа с ошибкой.
type errorBody struct {
	Notice domain.Notice `json:"notice"`
	Errors []string      `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку сервиса в HTTP-статус и уведомление.
// fallback — описание для ошибок upstream, например "La suppression a échoué.".
func writeError(w http.ResponseWriter, logger *log.Entry, err error, fallback string) {
	code, description := classify(err, fallback)
	body := errorBody{Notice: domain.ErrorNotice(description)}
	if code == http.StatusUnprocessableEntity {
		body.Errors = flatten(err)
	}

	entry := logger.WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request refused")
	}
	writeJSON(w, code, body)
}

func classify(err error, fallback string) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity, "Veuillez vérifier les champs du formulaire."
	case errors.Is(err, domain.ErrOrderLocked):
		return http.StatusConflict, "Cette commande ne peut plus être modifiée."
	case errors.Is(err, domain.ErrOrderAlreadyCancelled):
		return http.StatusConflict, "Cette commande est déjà annulée."
	case errors.Is(err, domain.ErrCancelNotConfirmed):
		return http.StatusConflict, "Confirmez l'annulation de la commande."
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Veuillez vous connecter."
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Accès non autorisé."
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrUpstreamNotFound),
		errors.Is(err, activity.ErrUnknownEntity):
		return http.StatusNotFound, "Élément introuvable."
	case errors.Is(err, domain.ErrUpstreamRejected):
		return http.StatusBadRequest, fallback
	case domain.IsUpstream(err):
		return http.StatusBadGateway, fallback
	default:
		return http.StatusInternalServerError, fallback
	}
}

// flatten раскрывает errors.Join в список сообщений.
func flatten(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Notice: domain.ErrorNotice("Requête invalide.")})
		return false
	}
	return true
}

// int64Param разбирает числовой идентификатор из URL, иначе domain.ErrInvalidID.
func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func relayCookies(w http.ResponseWriter, cookies []string) {
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
}
