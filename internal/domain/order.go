package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа на стороне gateway.
type OrderStatus string

const (
	// Заказ создан и ждёт подтверждения склада.
	OrderStatusPending OrderStatus = "PENDING"
	// Заказ подтверждён, сток списан.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// Подтверждение не удалось (например, не хватило стока).
	OrderStatusFailed OrderStatus = "FAILED"
	// Заказ отменён, сток возвращён upstream-сервисом.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Normalize приводит статус к верхнему регистру; пустой и неизвестный статус трактуются как PENDING.
func (s OrderStatus) Normalize() OrderStatus {
	switch v := OrderStatus(strings.ToUpper(strings.TrimSpace(string(s)))); v {
	case OrderStatusConfirmed, OrderStatusFailed, OrderStatusCancelled:
		return v
	default:
		return OrderStatusPending
	}
}

// Locked сообщает, что заказ больше нельзя редактировать (FAILED или CANCELLED).
func (s OrderStatus) Locked() bool {
	switch s.Normalize() {
	case OrderStatusFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Label возвращает подпись статуса для бейджа.
func (s OrderStatus) Label() string {
	switch s.Normalize() {
	case OrderStatusConfirmed:
		return "Confirmée"
	case OrderStatusFailed:
		return "Échouée"
	case OrderStatusCancelled:
		return "Annulée"
	default:
		return "En attente"
	}
}

// OrderItem — позиция заказа в удобном для обработки виде.
type OrderItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal возвращает unitPrice * quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order — заказ в удобном виде: числовой productId и ненулевая цена.
type Order struct {
	ID        int64       `json:"id,omitempty"`
	ClientID  string      `json:"clientId"`
	CreatedAt int64       `json:"createdAt,omitempty"` // epoch ms
	Status    OrderStatus `json:"status,omitempty"`
	Items     []OrderItem `json:"items"`
}

// Total пересчитывает сумму заказа по позициям; отдельно сумма нигде не хранится.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// CreatedTime возвращает момент создания; нулевой createdAt даёт нулевое время.
func (o Order) CreatedTime() time.Time {
	if o.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(o.CreatedAt)
}

// Validate проверяет заказ перед отправкой в gateway и возвращает список замечаний.
func (o *Order) Validate() []error {
	var errs []error

	if strings.TrimSpace(o.ClientID) == "" {
		errs = append(errs, ErrClientRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, it := range o.Items {
		if it.ProductID <= 0 {
			errs = append(errs, ErrItemProductRequired)
		}
		if it.Quantity < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if it.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
