package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// API — клиент general API (товары, клиенты, заказы).
type API struct {
	c *client
}

var (
	_ domain.CatalogGateway = (*API)(nil)
	_ domain.OrderGateway   = (*API)(nil)
)

// NewAPI создаёт клиент general API.
func NewAPI(opts Options) *API {
	return &API{c: newClient("api", opts)}
}

// Ping проверяет доступность general API.
func (a *API) Ping(ctx context.Context) error { return a.c.Ping(ctx) }

func (a *API) ListProducts(ctx context.Context, sess domain.Session) ([]domain.Product, error) {
	var products []domain.Product
	if _, err := a.c.do(ctx, http.MethodGet, "/products", sess.Cookie, nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (a *API) CreateProduct(ctx context.Context, sess domain.Session, p domain.Product) error {
	_, err := a.c.do(ctx, http.MethodPost, "/products", sess.Cookie, p, nil)
	return err
}

func (a *API) UpdateProduct(ctx context.Context, sess domain.Session, id int64, p domain.Product) error {
	_, err := a.c.do(ctx, http.MethodPut, "/products/"+strconv.FormatInt(id, 10), sess.Cookie, p, nil)
	return err
}

func (a *API) DeleteProduct(ctx context.Context, sess domain.Session, id int64) error {
	_, err := a.c.do(ctx, http.MethodDelete, "/products/"+strconv.FormatInt(id, 10), sess.Cookie, nil, nil)
	return err
}

func (a *API) ListClients(ctx context.Context, sess domain.Session) ([]domain.Client, error) {
	var clients []domain.Client
	if _, err := a.c.do(ctx, http.MethodGet, "/clients", sess.Cookie, nil, &clients); err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	return clients, nil
}

func (a *API) CreateClient(ctx context.Context, sess domain.Session, c domain.Client) error {
	_, err := a.c.do(ctx, http.MethodPost, "/clients", sess.Cookie, c, nil)
	return err
}

func (a *API) UpdateClient(ctx context.Context, sess domain.Session, id string, c domain.Client) error {
	_, err := a.c.do(ctx, http.MethodPut, "/clients/"+url.PathEscape(id), sess.Cookie, c, nil)
	return err
}

func (a *API) DeleteClient(ctx context.Context, sess domain.Session, id string) error {
	_, err := a.c.do(ctx, http.MethodDelete, "/clients/"+url.PathEscape(id), sess.Cookie, nil, nil)
	return err
}

// ListOrders запрашивает глобальный листинг. 404/405 трактуются как отсутствие маршрута:
// ошибка оборачивает domain.ErrUpstreamUnsupported, и вызывающий переходит на листинг по клиентам.
func (a *API) ListOrders(ctx context.Context, sess domain.Session) ([]domain.Order, error) {
	var list []APIOrder
	if _, err := a.c.do(ctx, http.MethodGet, "/orders", sess.Cookie, nil, &list); err != nil {
		if errors.Is(err, domain.ErrUpstreamNotFound) && !errors.Is(err, domain.ErrUpstreamUnsupported) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnsupported, err)
		}
		return nil, err
	}
	return fromAPIOrders(list), nil
}

// ListOrdersByClient читает GET /orders/{clientId}.
func (a *API) ListOrdersByClient(ctx context.Context, sess domain.Session, clientID string) ([]domain.Order, error) {
	var list []APIOrder
	if _, err := a.c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(clientID), sess.Cookie, nil, &list); err != nil {
		return nil, err
	}
	return fromAPIOrders(list), nil
}

func (a *API) CreateOrder(ctx context.Context, sess domain.Session, o domain.Order) error {
	payload := ToAPIOrder(o)
	payload.ID = 0
	payload.CreatedAt = 0
	payload.Status = ""
	_, err := a.c.do(ctx, http.MethodPost, "/orders", sess.Cookie, payload, nil)
	return err
}

func (a *API) UpdateOrder(ctx context.Context, sess domain.Session, id int64, o domain.Order) error {
	payload := ToAPIOrder(o)
	payload.ID = id
	_, err := a.c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10), sess.Cookie, payload, nil)
	return err
}

// SetOrderStatus отправляет PATCH /orders/{id} {"status": ...}. Возврат стока при отмене выполняет upstream.
func (a *API) SetOrderStatus(ctx context.Context, sess domain.Session, id int64, status domain.OrderStatus) error {
	body := struct {
		Status domain.OrderStatus `json:"status"`
	}{Status: status}
	_, err := a.c.do(ctx, http.MethodPatch, "/orders/"+strconv.FormatInt(id, 10), sess.Cookie, body, nil)
	return err
}

func (a *API) DeleteOrder(ctx context.Context, sess domain.Session, id int64) error {
	_, err := a.c.do(ctx, http.MethodDelete, "/orders/"+strconv.FormatInt(id, 10), sess.Cookie, nil, nil)
	return err
}
