// Package loader параллельно загружает коллекции консоли; сбой одной коллекции
// превращается в пустой список и уведомление, остальные загружаются как обычно.
package loader

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// Collection задаёт имя загружаемой коллекции.
type Collection string

const (
	Products Collection = "products"
	Clients  Collection = "clients"
	Users    Collection = "users"
	Orders   Collection = "orders"
)

// All перечисляет все коллекции, нужные дашборду.
var All = []Collection{Products, Clients, Users, Orders}

const fallbackConcurrency = 4

var failureDescriptions = map[Collection]string{
	Products: "Impossible de charger les produits.",
	Clients:  "Impossible de charger les clients.",
	Users:    "Impossible de récupérer les utilisateurs.",
	Orders:   "Impossible de récupérer les commandes.",
}

// DegradedRecorder получает имя коллекции, заменённой пустым списком.
type DegradedRecorder interface {
	RecordDegradedLoad(collection string)
}

// Result — загруженные коллекции. Коллекции, которые не запрашивались или не загрузились,
// пустые (не nil).
type Result struct {
	Products []domain.Product
	Clients  []domain.Client
	Users    []domain.User
	Orders   []domain.Order
	Notices  []domain.Notice
}

// Loader загружает коллекции из gateway.
type Loader struct {
	catalog  domain.CatalogGateway
	orders   domain.OrderGateway
	auth     domain.AuthGateway
	degraded DegradedRecorder
	logger   *log.Entry
}

// New создаёт Loader. degraded может быть nil.
func New(catalog domain.CatalogGateway, orders domain.OrderGateway, auth domain.AuthGateway, degraded DegradedRecorder, logger *log.Entry) *Loader {
	if logger == nil {
		logger = log.WithField("component", "loader")
	}
	return &Loader{catalog: catalog, orders: orders, auth: auth, degraded: degraded, logger: logger}
}

// Load загружает запрошенные коллекции параллельно; без аргументов загружаются все.
// Каждая горутина пишет только в свой слот результата.
func (l *Loader) Load(ctx context.Context, sess domain.Session, want ...Collection) Result {
	if len(want) == 0 {
		want = All
	}
	wanted := make(map[Collection]bool, len(want))
	for _, c := range want {
		wanted[c] = true
	}

	res := Result{
		Products: []domain.Product{},
		Clients:  []domain.Client{},
		Users:    []domain.User{},
		Orders:   []domain.Order{},
	}
	var (
		clientsErr error
		ordersErr  error
		failedMu   sync.Mutex
		failed     []Collection
	)
	fail := func(c Collection, err error) {
		failedMu.Lock()
		failed = append(failed, c)
		failedMu.Unlock()
		l.logger.WithError(err).WithField("collection", c).Warn("collection load failed")
	}

	var g errgroup.Group
	if wanted[Products] {
		g.Go(func() error {
			products, err := l.catalog.ListProducts(ctx, sess)
			if err != nil {
				fail(Products, err)
				return nil
			}
			res.Products = products
			return nil
		})
	}
	if wanted[Clients] || wanted[Orders] {
		g.Go(func() error {
			clients, err := l.catalog.ListClients(ctx, sess)
			if err != nil {
				clientsErr = err
				return nil
			}
			res.Clients = clients
			return nil
		})
	}
	if wanted[Users] {
		g.Go(func() error {
			users, err := l.auth.ListUsers(ctx, sess)
			if err != nil {
				// Список пользователей доступен только администраторам.
				if errors.Is(err, domain.ErrForbidden) {
					return nil
				}
				fail(Users, err)
				return nil
			}
			res.Users = users
			return nil
		})
	}
	if wanted[Orders] {
		g.Go(func() error {
			orders, err := l.orders.ListOrders(ctx, sess)
			if err != nil {
				ordersErr = err
				return nil
			}
			res.Orders = orders
			return nil
		})
	}
	_ = g.Wait()

	if clientsErr != nil {
		if wanted[Clients] {
			fail(Clients, clientsErr)
		} else {
			l.logger.WithError(clientsErr).Warn("clients load for order fallback failed")
		}
	}
	if ordersErr != nil {
		if errors.Is(ordersErr, domain.ErrUpstreamUnsupported) && clientsErr == nil {
			orders, err := l.ordersByClient(ctx, sess, res.Clients)
			res.Orders = orders
			if err != nil {
				fail(Orders, err)
			}
		} else {
			fail(Orders, ordersErr)
		}
	}
	if !wanted[Clients] {
		res.Clients = []domain.Client{}
	}

	for _, c := range All {
		if !contains(failed, c) {
			continue
		}
		res.Notices = append(res.Notices, domain.ErrorNotice(failureDescriptions[c]))
		if l.degraded != nil {
			l.degraded.RecordDegradedLoad(string(c))
		}
	}
	return res
}

// ordersByClient собирает заказы через GET /orders/{clientId}. Возвращает то, что удалось
// загрузить, и первую ошибку.
func (l *Loader) ordersByClient(ctx context.Context, sess domain.Session, clients []domain.Client) ([]domain.Order, error) {
	perClient := make([][]domain.Order, len(clients))
	errs := make([]error, len(clients))

	var g errgroup.Group
	g.SetLimit(fallbackConcurrency)
	for i, c := range clients {
		if c.ID == "" {
			continue
		}
		g.Go(func() error {
			perClient[i], errs[i] = l.orders.ListOrdersByClient(ctx, sess, c.ID.String())
			return nil
		})
	}
	_ = g.Wait()

	orders := []domain.Order{}
	seen := make(map[int64]struct{})
	for _, list := range perClient {
		for _, o := range list {
			if o.ID != 0 {
				if _, dup := seen[o.ID]; dup {
					continue
				}
				seen[o.ID] = struct{}{}
			}
			orders = append(orders, o)
		}
	}
	return orders, errors.Join(errs...)
}

func contains(list []Collection, c Collection) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
