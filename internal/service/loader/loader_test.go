package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/gateway/gatewaytest"
)

type degradedSpy struct {
	mu   sync.Mutex
	seen []string
}

func (s *degradedSpy) RecordDegradedLoad(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, collection)
}

func seeded() *gatewaytest.Fake {
	f := gatewaytest.New()
	f.Products[1] = domain.Product{ID: 1, Name: "Arabica", Stock: 10}
	f.Clients["c1"] = domain.Client{ID: "c1", Name: "Café Lune"}
	f.Clients["c2"] = domain.Client{ID: "c2", Name: "Bistrot"}
	f.Users["u1"] = domain.User{ID: "u1", Email: "a@crm.io"}
	f.Orders[10] = domain.Order{ID: 10, ClientID: "c1", Status: domain.OrderStatusConfirmed}
	f.Orders[11] = domain.Order{ID: 11, ClientID: "c2", Status: domain.OrderStatusPending}
	return f
}

var sess = domain.Session{Cookie: "SESSION=x", User: domain.User{Email: "a@crm.io", Roles: domain.NewRoleSet("ADMIN")}}

func TestLoad_AllCollections(t *testing.T) {
	f := seeded()
	l := New(f, f, f, nil, nil)

	res := l.Load(context.Background(), sess)

	assert.Len(t, res.Products, 1)
	assert.Len(t, res.Clients, 2)
	assert.Len(t, res.Users, 1)
	assert.Len(t, res.Orders, 2)
	assert.Empty(t, res.Notices)
}

func TestLoad_FailureDegradesOnlyThatCollection(t *testing.T) {
	f := seeded()
	f.SetError("ListClients", fmt.Errorf("boom: %w", domain.ErrUpstreamUnavailable))
	spy := &degradedSpy{}
	l := New(f, f, f, spy, nil)

	res := l.Load(context.Background(), sess, Products, Clients, Users)

	require.NotNil(t, res.Clients)
	assert.Empty(t, res.Clients)
	assert.Len(t, res.Products, 1)
	assert.Len(t, res.Users, 1)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, domain.ErrorNotice("Impossible de charger les clients."), res.Notices[0])
	assert.Equal(t, []string{"clients"}, spy.seen)
}

func TestLoad_EveryCollectionFails(t *testing.T) {
	f := seeded()
	for _, op := range []string{"ListProducts", "ListClients", "ListUsers", "ListOrders"} {
		f.SetError(op, domain.ErrUpstreamUnavailable)
	}
	l := New(f, f, f, nil, nil)

	res := l.Load(context.Background(), sess)

	assert.Empty(t, res.Products)
	assert.Empty(t, res.Clients)
	assert.Empty(t, res.Users)
	assert.Empty(t, res.Orders)
	require.Len(t, res.Notices, 4)
	assert.Equal(t, "Impossible de charger les produits.", res.Notices[0].Description)
	assert.Equal(t, "Impossible de récupérer les commandes.", res.Notices[3].Description)
}

func TestLoad_ForbiddenUsersIsSilent(t *testing.T) {
	f := seeded()
	f.SetError("ListUsers", domain.ErrForbidden)
	l := New(f, f, f, nil, nil)

	res := l.Load(context.Background(), sess)

	assert.Empty(t, res.Users)
	assert.Empty(t, res.Notices)
}

func TestLoad_OrdersFallBackToPerClientListing(t *testing.T) {
	f := seeded()
	f.SetError("ListOrders", fmt.Errorf("%w: %w", domain.ErrUpstreamUnsupported, domain.ErrUpstreamNotFound))
	l := New(f, f, f, nil, nil)

	res := l.Load(context.Background(), sess, Orders)

	require.Len(t, res.Orders, 2)
	assert.Equal(t, 2, f.CallCount("ListOrdersByClient"))
	assert.Empty(t, res.Notices)
	// Клиенты загружались только для обхода и в результат не попадают.
	assert.Empty(t, res.Clients)
}

func TestLoad_PartialFallbackKeepsLoadedOrders(t *testing.T) {
	f := seeded()
	f.SetError("ListOrders", domain.ErrUpstreamUnsupported)
	f.SetError("ListOrdersByClient:c2", errors.New("timeout"))
	spy := &degradedSpy{}
	l := New(f, f, f, spy, nil)

	res := l.Load(context.Background(), sess, Clients, Orders)

	require.Len(t, res.Orders, 1)
	assert.Equal(t, int64(10), res.Orders[0].ID)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, []string{"orders"}, spy.seen)
}

func TestLoad_OrdersOtherErrorNoFallback(t *testing.T) {
	f := seeded()
	f.SetError("ListOrders", domain.ErrUpstreamUnavailable)
	l := New(f, f, f, nil, nil)

	res := l.Load(context.Background(), sess, Orders)

	assert.Empty(t, res.Orders)
	assert.False(t, f.Called("ListOrdersByClient"))
	require.Len(t, res.Notices, 1)
}
