package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// Auth — клиент auth-сервиса.
type Auth struct {
	c *client
}

var _ domain.AuthGateway = (*Auth)(nil)

// NewAuth создаёт клиент auth-сервиса.
func NewAuth(opts Options) *Auth {
	return &Auth{c: newClient("auth", opts)}
}

// Ping проверяет доступность auth-сервиса.
func (a *Auth) Ping(ctx context.Context) error { return a.c.Ping(ctx) }

// Login выполняет вход и сразу читает профиль через /me с выданными cookie.
func (a *Auth) Login(ctx context.Context, creds domain.Credentials) (domain.User, []string, error) {
	header, err := a.c.do(ctx, http.MethodPost, "/login", "", creds, nil)
	if err != nil {
		return domain.User{}, nil, err
	}
	setCookies := header.Values("Set-Cookie")
	user, err := a.Me(ctx, CookieHeader(setCookies))
	if err != nil {
		return domain.User{}, nil, err
	}
	return user, setCookies, nil
}

// Logout завершает сессию и возвращает Set-Cookie, очищающие cookie браузера.
func (a *Auth) Logout(ctx context.Context, sess domain.Session) ([]string, error) {
	header, err := a.c.do(ctx, http.MethodPost, "/logout", sess.Cookie, nil, nil)
	if err != nil {
		return nil, err
	}
	return header.Values("Set-Cookie"), nil
}

func (a *Auth) Register(ctx context.Context, reg domain.Registration) error {
	_, err := a.c.do(ctx, http.MethodPost, "/register", "", reg, nil)
	return err
}

// Me возвращает пользователя текущей сессии; без cookie сразу domain.ErrUnauthenticated.
func (a *Auth) Me(ctx context.Context, cookie string) (domain.User, error) {
	if strings.TrimSpace(cookie) == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	var user domain.User
	if _, err := a.c.do(ctx, http.MethodGet, "/me", cookie, nil, &user); err != nil {
		return domain.User{}, err
	}
	if user.Email == "" && user.ID == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

func (a *Auth) UpdateMe(ctx context.Context, sess domain.Session, upd domain.UserUpdate) (domain.User, error) {
	var user domain.User
	if _, err := a.c.do(ctx, http.MethodPut, "/me", sess.Cookie, upd, &user); err != nil {
		return domain.User{}, err
	}
	if user.Email == "" && user.ID == "" {
		return a.Me(ctx, sess.Cookie)
	}
	return user, nil
}

func (a *Auth) ListUsers(ctx context.Context, sess domain.Session) ([]domain.User, error) {
	var users []domain.User
	if _, err := a.c.do(ctx, http.MethodGet, "/users", sess.Cookie, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (a *Auth) UpdateUser(ctx context.Context, sess domain.Session, id string, upd domain.UserUpdate) error {
	_, err := a.c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), sess.Cookie, upd.Normalize(), nil)
	return err
}

func (a *Auth) DeleteUser(ctx context.Context, sess domain.Session, id string) error {
	_, err := a.c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), sess.Cookie, nil, nil)
	return err
}

// CookieHeader собирает заголовок Cookie из значений Set-Cookie (только пары name=value).
func CookieHeader(setCookies []string) string {
	parts := make([]string, 0, len(setCookies))
	for _, raw := range setCookies {
		pair, _, _ := strings.Cut(raw, ";")
		if pair = strings.TrimSpace(pair); pair != "" {
			parts = append(parts, pair)
		}
	}
	return strings.Join(parts, "; ")
}
