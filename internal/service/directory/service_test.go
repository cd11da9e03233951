package directory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/gateway/gatewaytest"
)

type recorded struct {
	entity domain.Entity
	id     string
	action domain.Action
}

type activitySpy struct{ events []recorded }

func (a *activitySpy) Record(_ domain.Session, entity domain.Entity, id string, action domain.Action, _ string) {
	a.events = append(a.events, recorded{entity, id, action})
}

var (
	manager = domain.Session{Cookie: "SESSION=m", User: domain.User{Email: "m@crm.io", Roles: domain.NewRoleSet("MANAGER")}}
	admin   = domain.Session{Cookie: "SESSION=a", User: domain.User{Email: "a@crm.io", Roles: domain.NewRoleSet("ADMIN")}}
)

func newService() (*Service, *gatewaytest.Fake, *activitySpy) {
	f := gatewaytest.New()
	f.Products[1] = domain.Product{ID: 1, Name: "Arabica", Price: decimal.NewFromInt(12), Stock: 4}
	f.Clients["c1"] = domain.Client{ID: "c1", Name: "Café Lune"}
	f.Users["u1"] = domain.User{ID: "u1", Email: "u1@crm.io", Roles: domain.NewRoleSet("USER")}
	act := &activitySpy{}
	return NewService(f, f, act, nil), f, act
}

func TestProducts_CRUD(t *testing.T) {
	svc, f, act := newService()
	ctx := context.Background()

	res, err := svc.CreateProduct(ctx, manager, domain.Product{Name: "Moka", Price: decimal.NewFromInt(9), Stock: 20})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, "Moka a été ajouté avec succès.", res.Notices[0].Description)

	res, err = svc.UpdateProduct(ctx, manager, 1, domain.Product{Name: "Arabica bio", Price: decimal.NewFromInt(14), Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "Arabica bio", f.Products[1].Name)
	assert.Equal(t, "Produit modifié", res.Notices[0].Title)

	res, err = svc.DeleteProduct(ctx, manager, 1)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	assert.Equal(t, []recorded{
		{domain.EntityProduct, "", domain.ActionCreated},
		{domain.EntityProduct, "1", domain.ActionUpdated},
		{domain.EntityProduct, "1", domain.ActionDeleted},
	}, act.events)
}

func TestProducts_ValidationBeforeNetwork(t *testing.T) {
	svc, f, act := newService()

	_, err := svc.CreateProduct(context.Background(), manager, domain.Product{Price: decimal.NewFromInt(-1), Stock: -2})

	assert.ErrorIs(t, err, domain.ErrProductNameRequired)
	assert.ErrorIs(t, err, domain.ErrProductPriceInvalid)
	assert.ErrorIs(t, err, domain.ErrProductStockInvalid)
	assert.False(t, f.Called("CreateProduct"))
	assert.Empty(t, act.events)

	_, err = svc.DeleteProduct(context.Background(), manager, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestProducts_UpstreamFailureKeepsState(t *testing.T) {
	svc, f, act := newService()
	f.SetError("UpdateProduct", domain.ErrUpstreamRejected)

	_, err := svc.UpdateProduct(context.Background(), manager, 1, domain.Product{Name: "X"})

	require.ErrorIs(t, err, domain.ErrUpstreamRejected)
	assert.Equal(t, "Arabica", f.Products[1].Name)
	assert.Empty(t, act.events)
	assert.False(t, f.Called("ListProducts"))
}

func TestClients_CRUD(t *testing.T) {
	svc, f, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, manager, domain.Client{})
	require.ErrorIs(t, err, domain.ErrClientNameRequired)

	res, err := svc.CreateClient(ctx, manager, domain.Client{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, "Jean Dupont a été ajouté avec succès.", res.Notices[0].Description)

	_, err = svc.UpdateClient(ctx, manager, "c1", domain.Client{CompanyName: "Lune SARL"})
	require.NoError(t, err)
	assert.Equal(t, "Lune SARL", f.Clients["c1"].CompanyName)

	res, err = svc.DeleteClient(ctx, manager, "c1")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestClients_RefreshFailure(t *testing.T) {
	svc, f, _ := newService()
	f.SetError("ListClients", domain.ErrUpstreamUnavailable)

	res, err := svc.DeleteClient(context.Background(), manager, "c1")
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	require.Len(t, res.Notices, 2)
	assert.Equal(t, "Impossible de charger les clients.", res.Notices[1].Description)
}

func TestUsers_AdminOnly(t *testing.T) {
	svc, f, _ := newService()
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, manager)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.UpdateUser(ctx, manager, "u1", domain.UserUpdate{Email: "x@crm.io"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.DeleteUser(ctx, manager, "u1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.CreateUser(ctx, manager, domain.Registration{Email: "n@crm.io", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.Empty(t, f.Calls)
}

func TestUsers_UpdateNormalisesRoleAndStatus(t *testing.T) {
	svc, f, act := newService()

	res, err := svc.UpdateUser(context.Background(), admin, "u1", domain.UserUpdate{Email: "u1@crm.io", Role: "manager", Status: "active"})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleSet{domain.RoleManager}, f.Users["u1"].Roles)
	assert.Equal(t, "ACTIVE", f.Users["u1"].Status)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, []recorded{{domain.EntityUser, "u1", domain.ActionUpdated}}, act.events)
}

func TestUsers_CreateAndDelete(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, admin, domain.Registration{Email: "n@crm.io"})
	require.ErrorIs(t, err, domain.ErrPasswordRequired)

	res, err := svc.CreateUser(ctx, admin, domain.Registration{Email: "n@crm.io", Password: "pw"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.DeleteUser(ctx, admin, "u1")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, "Utilisateur supprimé.", res.Notices[0].Title)
}
