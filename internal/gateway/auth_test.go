package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

func TestAuth_LoginRelaysCookies(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Header().Add("Set-Cookie", "SESSION=xyz; Path=/; HttpOnly")
			w.Header().Add("Set-Cookie", "XSRF=t1; Path=/")
			w.WriteHeader(http.StatusOK)
		case "/me":
			if r.Header.Get("Cookie") != "SESSION=xyz; XSRF=t1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, map[string]any{"id": 5, "email": "ana@crm.io", "roles": []string{"admin"}})
		}
	})
	auth := NewAuth(Options{BaseURL: srv.URL})

	user, cookies, err := auth.Login(context.Background(), domain.Credentials{Email: "ana@crm.io", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, "ana@crm.io", user.Email)
	assert.Equal(t, domain.FlexID("5"), user.ID)
	assert.True(t, user.Roles.Has(domain.RoleAdmin))
	assert.Equal(t, []string{"SESSION=xyz; Path=/; HttpOnly", "XSRF=t1; Path=/"}, cookies)
	assert.Equal(t, "/me", up.last().Path)
}

func TestAuth_LoginRejected(t *testing.T) {
	_, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	auth := NewAuth(Options{BaseURL: srv.URL})

	_, _, err := auth.Login(context.Background(), domain.Credentials{Email: "x", Password: "y"})

	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuth_MeWithoutCookieSkipsUpstream(t *testing.T) {
	called := false
	_, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})
	auth := NewAuth(Options{BaseURL: srv.URL})

	_, err := auth.Me(context.Background(), "")

	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.False(t, called)
}

func TestAuth_ListUsersNormalisesRoleObjects(t *testing.T) {
	_, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": "u1", "email": "a@crm.io", "roles": []map[string]string{{"name": "ADMIN"}, {"name": "manager"}}},
			{"id": "u2", "email": "b@crm.io", "role": "user"},
		})
	})
	auth := NewAuth(Options{BaseURL: srv.URL})

	users, err := auth.ListUsers(context.Background(), adminSession)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, domain.RoleSet{domain.RoleAdmin, domain.RoleManager}, users[0].Roles)
	assert.Equal(t, domain.RoleSet{domain.RoleUser}, users[1].Roles)
}

func TestAuth_UpdateUserUppercasesRoleAndStatus(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	auth := NewAuth(Options{BaseURL: srv.URL})

	err := auth.UpdateUser(context.Background(), adminSession, "u1", domain.UserUpdate{Email: "a@crm.io", Role: "manager", Status: "active"})
	require.NoError(t, err)

	assert.Equal(t, "/users/u1", up.last().Path)
	assert.JSONEq(t, `{"firstName":"","lastName":"","email":"a@crm.io","role":"MANAGER","status":"ACTIVE"}`, up.last().Body)
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "", CookieHeader(nil))
	assert.Equal(t, "a=1; b=2", CookieHeader([]string{"a=1; Path=/", " b=2 "}))
}
