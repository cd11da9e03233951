package access

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

type sessionKey struct{}

// WithSession кладёт сессию в контекст запроса.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom достаёт сессию из контекста; ok=false, если middleware её не положил.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domain.Session)
	return sess, ok
}

// Authenticate резолвит пользователя через auth-сервис по cookie браузера.
// Без действующей сессии отвечает 401, при недоступном auth-сервисе 502.
func Authenticate(auth domain.AuthGateway, logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "access")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie := r.Header.Get("Cookie")
			user, err := auth.Me(r.Context(), cookie)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrForbidden) {
					deny(w, http.StatusUnauthorized, "Veuillez vous connecter.")
					return
				}
				logger.WithError(err).WithField("path", r.URL.Path).Warn("failed to resolve session")
				deny(w, http.StatusBadGateway, "Service d'authentification indisponible.")
				return
			}

			sess := domain.Session{User: user, Cookie: cookie}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireRole пропускает запрос, только если у пользователя есть одна из ролей.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFrom(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Veuillez vous connecter.")
				return
			}
			if !sess.User.Roles.HasAny(roles...) {
				deny(w, http.StatusForbidden, "Accès non autorisé.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]domain.Notice{"notice": domain.ErrorNotice(description)})
}
