package domain

import (
	"context"
	"time"
)

// CatalogGateway работает с товарами и клиентами general API.
type CatalogGateway interface {
	ListProducts(ctx context.Context, sess Session) ([]Product, error)
	CreateProduct(ctx context.Context, sess Session, p Product) error
	UpdateProduct(ctx context.Context, sess Session, id int64, p Product) error
	DeleteProduct(ctx context.Context, sess Session, id int64) error

	ListClients(ctx context.Context, sess Session) ([]Client, error)
	CreateClient(ctx context.Context, sess Session, c Client) error
	UpdateClient(ctx context.Context, sess Session, id string, c Client) error
	DeleteClient(ctx context.Context, sess Session, id string) error
}

// OrderGateway работает с заказами general API.
type OrderGateway interface {
	// ListOrders возвращает все заказы; ErrUpstreamUnsupported, если глобального листинга нет.
	ListOrders(ctx context.Context, sess Session) ([]Order, error)
	ListOrdersByClient(ctx context.Context, sess Session, clientID string) ([]Order, error)
	CreateOrder(ctx context.Context, sess Session, o Order) error
	UpdateOrder(ctx context.Context, sess Session, id int64, o Order) error
	SetOrderStatus(ctx context.Context, sess Session, id int64, status OrderStatus) error
	DeleteOrder(ctx context.Context, sess Session, id int64) error
}

// AuthGateway описывает auth-сервис.
type AuthGateway interface {
	// Login возвращает пользователя и заголовки Set-Cookie, которые нужно отдать браузеру.
	Login(ctx context.Context, creds Credentials) (User, []string, error)
	Logout(ctx context.Context, sess Session) ([]string, error)
	Register(ctx context.Context, reg Registration) error
	Me(ctx context.Context, cookie string) (User, error)
	UpdateMe(ctx context.Context, sess Session, upd UserUpdate) (User, error)

	ListUsers(ctx context.Context, sess Session) ([]User, error)
	UpdateUser(ctx context.Context, sess Session, id string, upd UserUpdate) error
	DeleteUser(ctx context.Context, sess Session, id string) error
}

// AuditRepository хранит журнал действий консоли.
type AuditRepository interface {
	Append(event AuditEvent) error
	List(entity Entity, entityID string) ([]AuditEvent, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxCleaner удаляет обработанные (sent/failed) сообщения outbox.
type OutboxCleaner interface {
	// DeleteProcessedBefore удаляет до limit записей, обновлённых не позже before.
	DeleteProcessedBefore(before time.Time, limit int) (int, error)
}

// ActivityRecorder фиксирует успешное действие в журнале и outbox.
type ActivityRecorder interface {
	Record(sess Session, entity Entity, entityID string, action Action, reason string)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
