package gateway

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// APIOrderItem — позиция заказа в формате gateway: строковый itemId и nullable цена.
type APIOrderItem struct {
	ID        *int64              `json:"id,omitempty"`
	ItemID    string              `json:"itemId"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unitPrice"`
}

// APIOrder — заказ в формате gateway.
type APIOrder struct {
	ID        int64              `json:"id,omitempty"`
	ClientID  domain.FlexID      `json:"clientId"`
	CreatedAt int64              `json:"createdAt,omitempty"`
	Status    domain.OrderStatus `json:"status,omitempty"`
	Items     []APIOrderItem     `json:"items"`
}

// ToAPIOrder переводит заказ в формат gateway.
func ToAPIOrder(o domain.Order) APIOrder {
	items := make([]APIOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, APIOrderItem{
			ItemID:    strconv.FormatInt(it.ProductID, 10),
			Quantity:  it.Quantity,
			UnitPrice: decimal.NewNullDecimal(it.UnitPrice),
		})
	}
	return APIOrder{
		ID:        o.ID,
		ClientID:  domain.FlexID(o.ClientID),
		CreatedAt: o.CreatedAt,
		Status:    o.Status,
		Items:     items,
	}
}

// FromAPIOrder переводит заказ gateway в удобный вид: null-цена становится 0,
// нечисловой itemId даёт 0, статус нормализуется.
func FromAPIOrder(api APIOrder) domain.Order {
	items := make([]domain.OrderItem, 0, len(api.Items))
	for _, it := range api.Items {
		price := decimal.Zero
		if it.UnitPrice.Valid {
			price = it.UnitPrice.Decimal
		}
		items = append(items, domain.OrderItem{
			ProductID: parseItemID(it.ItemID),
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}
	return domain.Order{
		ID:        api.ID,
		ClientID:  api.ClientID.String(),
		CreatedAt: api.CreatedAt,
		Status:    api.Status.Normalize(),
		Items:     items,
	}
}

func parseItemID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func fromAPIOrders(list []APIOrder) []domain.Order {
	orders := make([]domain.Order, 0, len(list))
	for _, o := range list {
		orders = append(orders, FromAPIOrder(o))
	}
	return orders
}
