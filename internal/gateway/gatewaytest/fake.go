// Package gatewaytest содержит in-memory реализацию gateway для тестов сервисов и HTTP-слоя.
package gatewaytest

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// Fake реализует domain.CatalogGateway, domain.OrderGateway и domain.AuthGateway.
// Ошибки задаются по имени операции в Errors, например Errors["ListOrders"].
type Fake struct {
	mu sync.Mutex

	Products map[int64]domain.Product
	Clients  map[string]domain.Client
	Users    map[string]domain.User
	Orders   map[int64]domain.Order

	// Sessions сопоставляет заголовок Cookie пользователю для Me/Login.
	Sessions map[string]domain.User
	// Passwords — email -> пароль для Login.
	Passwords map[string]string

	Errors map[string]error
	Calls  []string

	nextID int64
}

var (
	_ domain.CatalogGateway = (*Fake)(nil)
	_ domain.OrderGateway   = (*Fake)(nil)
	_ domain.AuthGateway    = (*Fake)(nil)
)

// New возвращает пустой Fake.
func New() *Fake {
	return &Fake{
		Products:  map[int64]domain.Product{},
		Clients:   map[string]domain.Client{},
		Users:     map[string]domain.User{},
		Orders:    map[int64]domain.Order{},
		Sessions:  map[string]domain.User{},
		Passwords: map[string]string{},
		Errors:    map[string]error{},
		nextID:    1000,
	}
}

// Called сообщает, вызывалась ли операция.
func (f *Fake) Called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == op {
			return true
		}
	}
	return false
}

// CallCount возвращает число вызовов операции.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// SetError задаёт ошибку операции.
func (f *Fake) SetError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[op] = err
}

func (f *Fake) enter(op string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, op)
	return f.Errors[op]
}

func (f *Fake) ListProducts(_ context.Context, _ domain.Session) ([]domain.Product, error) {
	err := f.enter("ListProducts")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(f.Products))
	for _, p := range f.Products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) CreateProduct(_ context.Context, _ domain.Session, p domain.Product) error {
	err := f.enter("CreateProduct")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.nextID++
	p.ID = f.nextID
	f.Products[p.ID] = p
	return nil
}

func (f *Fake) UpdateProduct(_ context.Context, _ domain.Session, id int64, p domain.Product) error {
	err := f.enter("UpdateProduct")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Products[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	p.ID = id
	f.Products[id] = p
	return nil
}

func (f *Fake) DeleteProduct(_ context.Context, _ domain.Session, id int64) error {
	err := f.enter("DeleteProduct")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Products[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	delete(f.Products, id)
	return nil
}

func (f *Fake) ListClients(_ context.Context, _ domain.Session) ([]domain.Client, error) {
	err := f.enter("ListClients")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, len(f.Clients))
	for _, c := range f.Clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) CreateClient(_ context.Context, _ domain.Session, c domain.Client) error {
	err := f.enter("CreateClient")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.nextID++
	c.ID = domain.FlexID(strconv.FormatInt(f.nextID, 10))
	f.Clients[c.ID.String()] = c
	return nil
}

func (f *Fake) UpdateClient(_ context.Context, _ domain.Session, id string, c domain.Client) error {
	err := f.enter("UpdateClient")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Clients[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	c.ID = domain.FlexID(id)
	f.Clients[id] = c
	return nil
}

func (f *Fake) DeleteClient(_ context.Context, _ domain.Session, id string) error {
	err := f.enter("DeleteClient")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Clients[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	delete(f.Clients, id)
	return nil
}

func (f *Fake) ListOrders(_ context.Context, _ domain.Session) ([]domain.Order, error) {
	err := f.enter("ListOrders")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.ordersLocked(""), nil
}

func (f *Fake) ListOrdersByClient(_ context.Context, _ domain.Session, clientID string) ([]domain.Order, error) {
	err := f.enter("ListOrdersByClient")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if e := f.Errors["ListOrdersByClient:"+clientID]; e != nil {
		return nil, e
	}
	return f.ordersLocked(clientID), nil
}

func (f *Fake) ordersLocked(clientID string) []domain.Order {
	out := make([]domain.Order, 0, len(f.Orders))
	for _, o := range f.Orders {
		if clientID == "" || o.ClientID == clientID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) CreateOrder(_ context.Context, _ domain.Session, o domain.Order) error {
	err := f.enter("CreateOrder")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.nextID++
	o.ID = f.nextID
	o.Status = domain.OrderStatusPending
	f.Orders[o.ID] = o
	return nil
}

func (f *Fake) UpdateOrder(_ context.Context, _ domain.Session, id int64, o domain.Order) error {
	err := f.enter("UpdateOrder")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	current, ok := f.Orders[id]
	if !ok {
		return domain.ErrUpstreamNotFound
	}
	o.ID = id
	o.Status = current.Status
	o.CreatedAt = current.CreatedAt
	f.Orders[id] = o
	return nil
}

func (f *Fake) SetOrderStatus(_ context.Context, _ domain.Session, id int64, status domain.OrderStatus) error {
	err := f.enter("SetOrderStatus")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	o, ok := f.Orders[id]
	if !ok {
		return domain.ErrUpstreamNotFound
	}
	o.Status = status
	f.Orders[id] = o
	return nil
}

func (f *Fake) DeleteOrder(_ context.Context, _ domain.Session, id int64) error {
	err := f.enter("DeleteOrder")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Orders[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	delete(f.Orders, id)
	return nil
}

func (f *Fake) Login(_ context.Context, creds domain.Credentials) (domain.User, []string, error) {
	err := f.enter("Login")
	defer f.mu.Unlock()
	if err != nil {
		return domain.User{}, nil, err
	}
	if pw, ok := f.Passwords[creds.Email]; !ok || pw != creds.Password {
		return domain.User{}, nil, domain.ErrUnauthenticated
	}
	cookie := "SESSION=" + creds.Email
	for _, u := range f.Users {
		if u.Email == creds.Email {
			f.Sessions[cookie] = u
			return u, []string{cookie + "; Path=/; HttpOnly"}, nil
		}
	}
	return domain.User{}, nil, domain.ErrUnauthenticated
}

func (f *Fake) Logout(_ context.Context, sess domain.Session) ([]string, error) {
	err := f.enter("Logout")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	delete(f.Sessions, sess.Cookie)
	return []string{"SESSION=; Path=/; Max-Age=0"}, nil
}

func (f *Fake) Register(_ context.Context, reg domain.Registration) error {
	err := f.enter("Register")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.nextID++
	id := strconv.FormatInt(f.nextID, 10)
	f.Users[id] = domain.User{ID: domain.FlexID(id), Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName, Roles: domain.NewRoleSet("USER")}
	f.Passwords[reg.Email] = reg.Password
	return nil
}

func (f *Fake) Me(_ context.Context, cookie string) (domain.User, error) {
	err := f.enter("Me")
	defer f.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	u, ok := f.Sessions[cookie]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return u, nil
}

func (f *Fake) UpdateMe(_ context.Context, sess domain.Session, upd domain.UserUpdate) (domain.User, error) {
	err := f.enter("UpdateMe")
	defer f.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	u, ok := f.Sessions[sess.Cookie]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	u.FirstName, u.LastName, u.Email = upd.FirstName, upd.LastName, upd.Email
	f.Sessions[sess.Cookie] = u
	f.Users[u.ID.String()] = u
	return u, nil
}

func (f *Fake) ListUsers(_ context.Context, _ domain.Session) ([]domain.User, error) {
	err := f.enter("ListUsers")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) UpdateUser(_ context.Context, _ domain.Session, id string, upd domain.UserUpdate) error {
	err := f.enter("UpdateUser")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	u, ok := f.Users[id]
	if !ok {
		return domain.ErrUpstreamNotFound
	}
	upd = upd.Normalize()
	u.FirstName, u.LastName, u.Email, u.Status = upd.FirstName, upd.LastName, upd.Email, upd.Status
	u.Roles = domain.NewRoleSet(upd.Role)
	f.Users[id] = u
	return nil
}

func (f *Fake) DeleteUser(_ context.Context, _ domain.Session, id string) error {
	err := f.enter("DeleteUser")
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := f.Users[id]; !ok {
		return domain.ErrUpstreamNotFound
	}
	delete(f.Users, id)
	return nil
}
