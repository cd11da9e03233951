package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/gateway/gatewaytest"
)

type activitySpy struct {
	mu      sync.Mutex
	actions []domain.Action
	ids     []string
}

func (a *activitySpy) Record(_ domain.Session, entity domain.Entity, entityID string, action domain.Action, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entity == domain.EntityOrder {
		a.actions = append(a.actions, action)
		a.ids = append(a.ids, entityID)
	}
}

type refusalSpy struct{ reasons []string }

func (r *refusalSpy) RecordRefusedEdit(reason string) { r.reasons = append(r.reasons, reason) }

var (
	manager = domain.Session{Cookie: "SESSION=m", User: domain.User{Email: "m@crm.io", Roles: domain.NewRoleSet("MANAGER")}}
	admin   = domain.Session{Cookie: "SESSION=a", User: domain.User{Email: "a@crm.io", Roles: domain.NewRoleSet("ADMIN")}}
)

func validOrder(clientID string) domain.Order {
	return domain.Order{
		ClientID: clientID,
		Items:    []domain.OrderItem{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(5)}},
	}
}

func setup(t *testing.T) (*Service, *gatewaytest.Fake, *activitySpy, *refusalSpy) {
	t.Helper()
	f := gatewaytest.New()
	for id, status := range map[int64]domain.OrderStatus{
		1: domain.OrderStatusPending,
		2: domain.OrderStatusConfirmed,
		3: domain.OrderStatusFailed,
		4: domain.OrderStatusCancelled,
	} {
		o := validOrder("c1")
		o.ID = id
		o.Status = status
		f.Orders[id] = o
	}
	act := &activitySpy{}
	ref := &refusalSpy{}
	return NewService(f, act, ref, nil), f, act, ref
}

func TestPolicyFor(t *testing.T) {
	cases := []struct {
		status   domain.OrderStatus
		state    State
		editable bool
	}{
		{domain.OrderStatusPending, StateAwaiting, true},
		{"", StateAwaiting, true},
		{"shipped", StateAwaiting, true},
		{domain.OrderStatusConfirmed, StateSuccess, true},
		{domain.OrderStatusFailed, StateLocked, false},
		{"cancelled", StateLocked, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			p := PolicyFor(domain.Order{Status: tc.status})
			assert.Equal(t, tc.state, p.State)
			assert.Equal(t, tc.editable, p.ItemsEditable)
			assert.Equal(t, tc.editable, p.ClientEditable)
			assert.Equal(t, tc.editable, p.CanSubmit)
			assert.Equal(t, tc.editable, p.CanCancel)
			assert.NotEmpty(t, p.Message)
		})
	}
}

func TestPresent(t *testing.T) {
	o := validOrder("c1")
	o.Status = "confirmed"
	views := Present([]domain.Order{o, validOrder("c9")}, []domain.Client{{ID: "c1", CompanyName: "Torréfacteur"}})

	require.Len(t, views, 2)
	assert.Equal(t, "Torréfacteur", views[0].Client)
	assert.Equal(t, "Confirmée", views[0].StatusLabel)
	assert.Equal(t, domain.OrderStatusConfirmed, views[0].Status)
	assert.True(t, views[0].Total.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "c9", views[1].Client)
	assert.Equal(t, "En attente", views[1].StatusLabel)
}

func TestCreate_ValidationBeforeNetwork(t *testing.T) {
	svc, f, act, ref := setup(t)

	_, err := svc.Create(context.Background(), manager, domain.Order{Items: []domain.OrderItem{{ProductID: 0, Quantity: 0, UnitPrice: decimal.NewFromInt(-1)}}})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClientRequired)
	assert.ErrorIs(t, err, domain.ErrItemProductRequired)
	assert.ErrorIs(t, err, domain.ErrItemQtyInvalid)
	assert.ErrorIs(t, err, domain.ErrItemPriceInvalid)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.Calls)
	assert.Empty(t, act.actions)
	assert.Equal(t, []string{"invalid"}, ref.reasons)
}

func TestCreate_RefetchesClientOrders(t *testing.T) {
	svc, f, act, _ := setup(t)

	res, err := svc.Create(context.Background(), manager, validOrder("c1"))
	require.NoError(t, err)

	assert.Len(t, res.Items, 5)
	assert.True(t, f.Called("ListOrdersByClient"))
	assert.Equal(t, []domain.Action{domain.ActionCreated}, act.actions)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, domain.NoticeDefault, res.Notices[0].Variant)
}

func TestUpdate_LockedStatuses(t *testing.T) {
	for _, id := range []int64{3, 4} {
		svc, f, act, ref := setup(t)

		_, err := svc.Update(context.Background(), manager, id, validOrder("c1"), "")

		require.ErrorIs(t, err, domain.ErrOrderLocked)
		assert.False(t, f.Called("UpdateOrder"))
		assert.Empty(t, act.actions)
		assert.Equal(t, []string{"locked"}, ref.reasons)
	}
}

func TestUpdate_SubmittedLockedStatusRefusedWithoutCalls(t *testing.T) {
	svc, f, _, _ := setup(t)
	o := validOrder("c1")
	o.Status = domain.OrderStatusCancelled

	_, err := svc.Update(context.Background(), manager, 1, o, "")

	require.ErrorIs(t, err, domain.ErrOrderLocked)
	assert.Empty(t, f.Calls)
}

func TestUpdate_EditableStatuses(t *testing.T) {
	for _, id := range []int64{1, 2} {
		svc, f, act, _ := setup(t)
		o := validOrder("c2")
		o.Items[0].Quantity = 7

		_, err := svc.Update(context.Background(), manager, id, o, "c1")
		require.NoError(t, err)

		assert.True(t, f.Called("UpdateOrder"))
		assert.Equal(t, 7, f.Orders[id].Items[0].Quantity)
		assert.Equal(t, "c2", f.Orders[id].ClientID)
		assert.Equal(t, []domain.Action{domain.ActionUpdated}, act.actions)
	}
}

func TestUpdate_FallbackLookupAndNotFound(t *testing.T) {
	svc, f, _, _ := setup(t)
	f.SetError("ListOrders", domain.ErrUpstreamUnsupported)

	_, err := svc.Update(context.Background(), manager, 2, validOrder("c1"), "")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), manager, 99, validOrder("c1"), "")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdate_MoveToAnotherClientWithClientScopedListing(t *testing.T) {
	svc, f, act, _ := setup(t)
	f.SetError("ListOrders", domain.ErrUpstreamUnsupported)

	res, err := svc.Update(context.Background(), manager, 1, validOrder("c2"), "c1")
	require.NoError(t, err)

	assert.Equal(t, "c2", f.Orders[1].ClientID)
	assert.Equal(t, domain.OrderStatusPending, f.Orders[1].Status)
	assert.Equal(t, []domain.Action{domain.ActionUpdated}, act.actions)

	// Перечитывается таблица прежнего владельца: перенесённого заказа в ней больше нет.
	ids := make([]int64, 0, len(res.Items))
	for _, o := range res.Items {
		assert.Equal(t, "c1", o.ClientID)
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestUpdate_MoveWithoutOwnerHintIsNotFound(t *testing.T) {
	svc, f, _, _ := setup(t)
	f.SetError("ListOrders", domain.ErrUpstreamUnsupported)

	_, err := svc.Update(context.Background(), manager, 1, validOrder("c2"), "")

	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.False(t, f.Called("UpdateOrder"))
}

func TestCancel(t *testing.T) {
	cases := []struct {
		name      string
		id        int64
		confirmed bool
		wantErr   error
		patched   bool
	}{
		{"not confirmed", 1, false, domain.ErrCancelNotConfirmed, false},
		{"pending", 1, true, nil, true},
		{"confirmed", 2, true, nil, true},
		{"failed", 3, true, domain.ErrOrderLocked, false},
		{"already cancelled", 4, true, domain.ErrOrderAlreadyCancelled, false},
		{"unknown", 42, true, domain.ErrOrderNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, f, act, _ := setup(t)

			res, err := svc.Cancel(context.Background(), manager, tc.id, "c1", tc.confirmed)

			assert.Equal(t, tc.patched, f.Called("SetOrderStatus"))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, act.actions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusCancelled, f.Orders[tc.id].Status)
			assert.Equal(t, []domain.Action{domain.ActionCancelled}, act.actions)
			for _, o := range res.Items {
				if o.ID == tc.id {
					assert.Equal(t, domain.OrderStatusCancelled, o.Status)
				}
			}
		})
	}
}

func TestCancel_UpstreamFailureLeavesStateUnchanged(t *testing.T) {
	svc, f, act, _ := setup(t)
	f.SetError("SetOrderStatus", domain.ErrUpstreamUnavailable)

	_, err := svc.Cancel(context.Background(), manager, 1, "c1", true)

	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, domain.OrderStatusPending, f.Orders[1].Status)
	assert.Empty(t, act.actions)
}

func TestDelete_AdminOnly(t *testing.T) {
	svc, f, act, ref := setup(t)

	_, err := svc.Delete(context.Background(), manager, 1, "c1")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.False(t, f.Called("DeleteOrder"))
	assert.Equal(t, []string{"forbidden"}, ref.reasons)

	res, err := svc.Delete(context.Background(), admin, 1, "c1")
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, []string{"1"}, act.ids)
}

func TestMutation_RefreshFailureAddsNotice(t *testing.T) {
	svc, f, _, _ := setup(t)
	f.SetError("ListOrdersByClient", domain.ErrUpstreamUnavailable)

	res, err := svc.Create(context.Background(), manager, validOrder("c1"))
	require.NoError(t, err)

	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	require.Len(t, res.Notices, 2)
	assert.Equal(t, domain.NoticeDestructive, res.Notices[1].Variant)
}
