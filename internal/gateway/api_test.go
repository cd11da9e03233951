package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Cookie string
	Body   string
}

type fakeUpstream struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) (*fakeUpstream, *httptest.Server) {
	t.Helper()
	f := &fakeUpstream{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Cookie: r.Header.Get("Cookie"), Body: string(body)})
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUpstream) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type observation struct {
	service string
	method  string
	code    int
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *fakeObserver) ObserveUpstream(service, method string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{service, method, code})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var adminSession = domain.Session{Cookie: "SESSION=abc", User: domain.User{Email: "admin@crm.io", Roles: domain.NewRoleSet("ADMIN")}}

func TestAPI_ListProductsForwardsCookie(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Arabica","price":12.5,"stock":"n/a"},{"id":2,"name":"Robusta","price":"8","stock":40}]`)
	})
	obs := &fakeObserver{}
	api := NewAPI(Options{BaseURL: srv.URL + "/", Observer: obs})

	products, err := api.ListProducts(context.Background(), adminSession)
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, int64(0), products[0].Stock)
	assert.Equal(t, int64(40), products[1].Stock)
	assert.True(t, products[1].Price.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "SESSION=abc", up.last().Cookie)
	assert.Equal(t, "/products", up.last().Path)
	assert.Equal(t, []observation{{"api", http.MethodGet, http.StatusOK}}, obs.seen)
}

func TestAPI_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, domain.ErrForbidden},
		{"not found", http.StatusNotFound, domain.ErrUpstreamNotFound},
		{"method not allowed", http.StatusMethodNotAllowed, domain.ErrUpstreamUnsupported},
		{"bad request", http.StatusBadRequest, domain.ErrUpstreamRejected},
		{"conflict", http.StatusConflict, domain.ErrUpstreamRejected},
		{"server error", http.StatusBadGateway, domain.ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			})
			api := NewAPI(Options{BaseURL: srv.URL})

			err := api.DeleteClient(context.Background(), adminSession, "c-1")

			require.ErrorIs(t, err, tc.want)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tc.status, statusErr.Code)
			assert.Equal(t, "/clients/c-1", statusErr.Path)
		})
	}
}

func TestAPI_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	obs := &fakeObserver{}
	api := NewAPI(Options{BaseURL: srv.URL, Observer: obs})

	_, err := api.ListClients(context.Background(), adminSession)

	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, 0, obs.seen[0].code)
}

func TestAPI_ListOrdersNotFoundIsUnsupported(t *testing.T) {
	_, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	api := NewAPI(Options{BaseURL: srv.URL})

	_, err := api.ListOrders(context.Background(), adminSession)

	require.ErrorIs(t, err, domain.ErrUpstreamUnsupported)
	require.ErrorIs(t, err, domain.ErrUpstreamNotFound)
}

func TestAPI_ListOrdersByClient(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{"id": 3, "clientId": "c 1", "status": "PENDING", "items": []map[string]any{{"itemId": "2", "quantity": 1, "unitPrice": nil}}}})
	})
	api := NewAPI(Options{BaseURL: srv.URL})

	orders, err := api.ListOrdersByClient(context.Background(), adminSession, "c 1")
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, int64(2), orders[0].Items[0].ProductID)
	assert.Equal(t, "/orders/c 1", up.last().Path)
}

func TestAPI_OrderMutations(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api := NewAPI(Options{BaseURL: srv.URL})
	ctx := context.Background()
	order := domain.Order{
		ID:       99,
		ClientID: "c1",
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: 4, Quantity: 2, UnitPrice: decimal.NewFromInt(3)}},
	}

	require.NoError(t, api.CreateOrder(ctx, adminSession, order))
	assert.Equal(t, http.MethodPost, up.last().Method)
	assert.JSONEq(t, `{"clientId":"c1","items":[{"itemId":"4","quantity":2,"unitPrice":3}]}`, up.last().Body)

	require.NoError(t, api.UpdateOrder(ctx, adminSession, 12, order))
	assert.Equal(t, http.MethodPut, up.last().Method)
	assert.Equal(t, "/orders/12", up.last().Path)

	require.NoError(t, api.SetOrderStatus(ctx, adminSession, 12, domain.OrderStatusCancelled))
	assert.Equal(t, http.MethodPatch, up.last().Method)
	assert.JSONEq(t, `{"status":"CANCELLED"}`, up.last().Body)

	require.NoError(t, api.DeleteOrder(ctx, adminSession, 12))
	assert.Equal(t, http.MethodDelete, up.last().Method)
}
