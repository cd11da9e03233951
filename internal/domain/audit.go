package domain

import "time"

// Entity — тип сущности, над которой выполнено действие в консоли.
type Entity string

const (
	EntityProduct Entity = "product"
	EntityClient  Entity = "client"
	EntityOrder   Entity = "order"
	EntityUser    Entity = "user"
)

// Action — вид действия в консоли.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionCancelled Action = "cancelled"
)

// AuditEvent описывает успешное изменение, выполненное через консоль.
type AuditEvent struct {
	ID       string    `json:"id"`
	Entity   Entity    `json:"entity"`
	EntityID string    `json:"entityId"`
	Action   Action    `json:"action"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// EventType возвращает тип события для outbox, например "order.cancelled".
func (e AuditEvent) EventType() string {
	return string(e.Entity) + "." + string(e.Action)
}
