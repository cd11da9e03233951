package orders

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// State — состояние формы редактирования заказа.
type State string

const (
	StateAwaiting State = "awaiting"
	StateSuccess  State = "success"
	StateLocked   State = "locked"
)

// Policy описывает, что можно делать с заказом в текущем статусе.
type Policy struct {
	State          State  `json:"state"`
	Message        string `json:"message"`
	ItemsEditable  bool   `json:"itemsEditable"`
	ClientEditable bool   `json:"clientEditable"`
	CanSubmit      bool   `json:"canSubmit"`
	CanCancel      bool   `json:"canCancel"`
}

// PolicyFor возвращает политику редактирования по статусу заказа.
// FAILED и CANCELLED блокируют форму целиком; CONFIRMED остаётся редактируемым.
func PolicyFor(o domain.Order) Policy {
	switch o.Status.Normalize() {
	case domain.OrderStatusConfirmed:
		return Policy{
			State:          StateSuccess,
			Message:        "Commande confirmée, le stock a été réservé.",
			ItemsEditable:  true,
			ClientEditable: true,
			CanSubmit:      true,
			CanCancel:      true,
		}
	case domain.OrderStatusFailed:
		return Policy{State: StateLocked, Message: "Commande échouée : elle ne peut plus être modifiée."}
	case domain.OrderStatusCancelled:
		return Policy{State: StateLocked, Message: "Commande annulée : elle ne peut plus être modifiée."}
	default:
		return Policy{
			State:          StateAwaiting,
			Message:        "En attente de confirmation du stock.",
			ItemsEditable:  true,
			ClientEditable: true,
			CanSubmit:      true,
			CanCancel:      true,
		}
	}
}

// View — заказ в виде для таблицы и формы консоли.
type View struct {
	domain.Order
	Total       decimal.Decimal `json:"total"`
	StatusLabel string          `json:"statusLabel"`
	Client      string          `json:"client"`
	Policy      Policy          `json:"policy"`
}

// Present строит представления заказов; имя клиента берётся из списка клиентов, иначе id.
func Present(orders []domain.Order, clients []domain.Client) []View {
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID.String()] = c.DisplayName()
	}
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		o.Status = o.Status.Normalize()
		label, ok := names[o.ClientID]
		if !ok {
			label = o.ClientID
		}
		views = append(views, View{
			Order:       o,
			Total:       o.Total(),
			StatusLabel: o.Status.Label(),
			Client:      label,
			Policy:      PolicyFor(o),
		})
	}
	return views
}
