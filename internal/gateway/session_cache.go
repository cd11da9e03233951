package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

const (
	sessionKeyPrefix       = "crm:session:"
	defaultSessionCacheTTL = 30 * time.Second
)

// SessionStore хранит профиль пользователя по ключу сессии.
type SessionStore interface {
	// Get возвращает found=false без ошибки, если ключа нет.
	Get(ctx context.Context, key string) (domain.User, bool, error)
	Set(ctx context.Context, key string, user domain.User, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionKey строит ключ кэша из заголовка Cookie; сами cookie в хранилище не попадают.
func SessionKey(cookie string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(cookie)))
	return sessionKeyPrefix + hex.EncodeToString(sum[:])
}

// CachedAuth кэширует ответы /me, которые читаются на каждом запросе консоли.
// Ошибки хранилища не ломают запрос: профиль читается из auth-сервиса.
type CachedAuth struct {
	domain.AuthGateway

	store  SessionStore
	ttl    time.Duration
	logger *log.Entry
}

var _ domain.AuthGateway = (*CachedAuth)(nil)

// NewCachedAuth оборачивает auth-клиент кэшем сессий.
func NewCachedAuth(inner domain.AuthGateway, store SessionStore, ttl time.Duration, logger *log.Entry) *CachedAuth {
	if ttl <= 0 {
		ttl = defaultSessionCacheTTL
	}
	if logger == nil {
		logger = log.WithField("component", "session-cache")
	}
	return &CachedAuth{AuthGateway: inner, store: store, ttl: ttl, logger: logger}
}

// Login кладёт профиль новой сессии в кэш.
func (a *CachedAuth) Login(ctx context.Context, creds domain.Credentials) (domain.User, []string, error) {
	user, setCookies, err := a.AuthGateway.Login(ctx, creds)
	if err != nil {
		return user, setCookies, err
	}
	if cookie := CookieHeader(setCookies); cookie != "" {
		a.put(ctx, cookie, user)
	}
	return user, setCookies, nil
}

func (a *CachedAuth) Me(ctx context.Context, cookie string) (domain.User, error) {
	if strings.TrimSpace(cookie) == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}

	user, found, err := a.store.Get(ctx, SessionKey(cookie))
	if err != nil {
		a.logger.WithError(err).Warn("session cache read failed")
	} else if found {
		return user, nil
	}

	user, err = a.AuthGateway.Me(ctx, cookie)
	if err != nil {
		return domain.User{}, err
	}
	a.put(ctx, cookie, user)
	return user, nil
}

// Logout сбрасывает кэш сессии даже при ошибке auth-сервиса.
func (a *CachedAuth) Logout(ctx context.Context, sess domain.Session) ([]string, error) {
	a.forget(ctx, sess.Cookie)
	return a.AuthGateway.Logout(ctx, sess)
}

func (a *CachedAuth) UpdateMe(ctx context.Context, sess domain.Session, upd domain.UserUpdate) (domain.User, error) {
	a.forget(ctx, sess.Cookie)
	user, err := a.AuthGateway.UpdateMe(ctx, sess, upd)
	if err != nil {
		return domain.User{}, err
	}
	a.put(ctx, sess.Cookie, user)
	return user, nil
}

func (a *CachedAuth) put(ctx context.Context, cookie string, user domain.User) {
	if err := a.store.Set(ctx, SessionKey(cookie), user, a.ttl); err != nil {
		a.logger.WithError(err).Warn("session cache write failed")
	}
}

func (a *CachedAuth) forget(ctx context.Context, cookie string) {
	if strings.TrimSpace(cookie) == "" {
		return
	}
	if err := a.store.Delete(ctx, SessionKey(cookie)); err != nil {
		a.logger.WithError(err).Warn("session cache delete failed")
	}
}
