// Package orders реализует сценарии работы с заказами: создание, изменение с учётом
// блокировки по статусу, отмену с подтверждением и удаление.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// RefusalRecorder считает изменения, отклонённые до обращения к gateway.
type RefusalRecorder interface {
	RecordRefusedEdit(reason string)
}

// Service — сценарии заказов. Каждая успешная мутация перечитывает заказы клиента,
// в таблице которого пользователь работал.
type Service struct {
	gateway  domain.OrderGateway
	activity domain.ActivityRecorder
	refusals RefusalRecorder
	logger   *log.Entry
}

// NewService создаёт сервис заказов. activity и refusals могут быть nil.
func NewService(gateway domain.OrderGateway, activity domain.ActivityRecorder, refusals RefusalRecorder, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Service{gateway: gateway, activity: activity, refusals: refusals, logger: logger}
}

// List возвращает заказы клиента или все заказы, если clientID пуст.
func (s *Service) List(ctx context.Context, sess domain.Session, clientID string) ([]domain.Order, error) {
	if clientID != "" {
		return s.gateway.ListOrdersByClient(ctx, sess, clientID)
	}
	return s.gateway.ListOrders(ctx, sess)
}

// Create проверяет заказ и отправляет его в gateway.
func (s *Service) Create(ctx context.Context, sess domain.Session, o domain.Order) (domain.Refreshed[domain.Order], error) {
	if errs := o.Validate(); len(errs) > 0 {
		s.refused("invalid")
		return domain.Refreshed[domain.Order]{}, errors.Join(errs...)
	}
	o.ID = 0
	o.CreatedAt = 0
	o.Status = ""
	if err := s.gateway.CreateOrder(ctx, sess, o); err != nil {
		return domain.Refreshed[domain.Order]{}, fmt.Errorf("create order: %w", err)
	}
	s.record(sess, "", domain.ActionCreated, "client "+o.ClientID)
	return s.refresh(ctx, sess, o.ClientID, domain.SuccessNotice("Commande créée.", "")), nil
}

// Update изменяет клиента и позиции заказа. FAILED/CANCELLED заказ отклоняется
// с domain.ErrOrderLocked до вызова PUT /orders/{id}. ownerHint — текущий владелец
// заказа: без глобального листинга заказ ищется у него, а не у нового клиента из o.
// После изменения перечитываются заказы прежнего владельца.
func (s *Service) Update(ctx context.Context, sess domain.Session, id int64, o domain.Order, ownerHint string) (domain.Refreshed[domain.Order], error) {
	if id <= 0 {
		return domain.Refreshed[domain.Order]{}, domain.ErrInvalidID
	}
	if o.Status != "" && o.Status.Locked() {
		s.refused("locked")
		return domain.Refreshed[domain.Order]{}, domain.ErrOrderLocked
	}
	if errs := o.Validate(); len(errs) > 0 {
		s.refused("invalid")
		return domain.Refreshed[domain.Order]{}, errors.Join(errs...)
	}

	if ownerHint == "" {
		ownerHint = o.ClientID
	}
	current, err := s.find(ctx, sess, id, ownerHint)
	if err != nil {
		return domain.Refreshed[domain.Order]{}, err
	}
	if current.Status.Locked() {
		s.refused("locked")
		return domain.Refreshed[domain.Order]{}, domain.ErrOrderLocked
	}

	o.ID = id
	o.CreatedAt = current.CreatedAt
	o.Status = current.Status
	if err := s.gateway.UpdateOrder(ctx, sess, id, o); err != nil {
		return domain.Refreshed[domain.Order]{}, fmt.Errorf("update order %d: %w", id, err)
	}

	reason := ""
	owner := current.ClientID
	if owner == "" {
		owner = ownerHint
	}
	if owner != o.ClientID {
		reason = "client " + owner + " -> " + o.ClientID
	}
	s.record(sess, strconv.FormatInt(id, 10), domain.ActionUpdated, reason)
	return s.refresh(ctx, sess, owner, domain.SuccessNotice("Commande mise à jour.", "")), nil
}

// Cancel переводит заказ в CANCELLED через PATCH /orders/{id}. Без подтверждения
// возвращает domain.ErrCancelNotConfirmed; сток возвращает upstream.
func (s *Service) Cancel(ctx context.Context, sess domain.Session, id int64, clientHint string, confirmed bool) (domain.Refreshed[domain.Order], error) {
	if id <= 0 {
		return domain.Refreshed[domain.Order]{}, domain.ErrInvalidID
	}
	if !confirmed {
		s.refused("unconfirmed")
		return domain.Refreshed[domain.Order]{}, domain.ErrCancelNotConfirmed
	}

	current, err := s.find(ctx, sess, id, clientHint)
	if err != nil {
		return domain.Refreshed[domain.Order]{}, err
	}
	switch current.Status.Normalize() {
	case domain.OrderStatusCancelled:
		s.refused("already_cancelled")
		return domain.Refreshed[domain.Order]{}, domain.ErrOrderAlreadyCancelled
	case domain.OrderStatusFailed:
		s.refused("locked")
		return domain.Refreshed[domain.Order]{}, domain.ErrOrderLocked
	}

	if err := s.gateway.SetOrderStatus(ctx, sess, id, domain.OrderStatusCancelled); err != nil {
		return domain.Refreshed[domain.Order]{}, fmt.Errorf("cancel order %d: %w", id, err)
	}
	s.record(sess, strconv.FormatInt(id, 10), domain.ActionCancelled, "status CANCELLED")
	return s.refresh(ctx, sess, current.ClientID, domain.SuccessNotice("Commande annulée.", "Le stock des produits a été rétabli.")), nil
}

// Delete удаляет заказ; доступно только администратору.
func (s *Service) Delete(ctx context.Context, sess domain.Session, id int64, clientHint string) (domain.Refreshed[domain.Order], error) {
	if !sess.HasRole(domain.RoleAdmin) {
		s.refused("forbidden")
		return domain.Refreshed[domain.Order]{}, domain.ErrForbidden
	}
	if id <= 0 {
		return domain.Refreshed[domain.Order]{}, domain.ErrInvalidID
	}
	if err := s.gateway.DeleteOrder(ctx, sess, id); err != nil {
		return domain.Refreshed[domain.Order]{}, fmt.Errorf("delete order %d: %w", id, err)
	}
	s.record(sess, strconv.FormatInt(id, 10), domain.ActionDeleted, "")
	return s.refresh(ctx, sess, clientHint, domain.SuccessNotice("Commande supprimée.", "")), nil
}

// find ищет заказ в глобальном листинге, а при его отсутствии в листинге клиента.
func (s *Service) find(ctx context.Context, sess domain.Session, id int64, clientHint string) (domain.Order, error) {
	list, err := s.gateway.ListOrders(ctx, sess)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamUnsupported) || clientHint == "" {
			return domain.Order{}, fmt.Errorf("lookup order %d: %w", id, err)
		}
		list, err = s.gateway.ListOrdersByClient(ctx, sess, clientHint)
		if err != nil {
			return domain.Order{}, fmt.Errorf("lookup order %d: %w", id, err)
		}
	}
	for _, o := range list {
		if o.ID == id {
			o.Status = o.Status.Normalize()
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// refresh перечитывает заказы после успешной мутации. Ошибка чтения не отменяет
// мутацию: возвращается пустой список и уведомление.
func (s *Service) refresh(ctx context.Context, sess domain.Session, clientID string, success domain.Notice) domain.Refreshed[domain.Order] {
	out := domain.Refreshed[domain.Order]{Notices: []domain.Notice{success}}
	orders, err := s.List(ctx, sess, clientID)
	if err != nil {
		s.logger.WithError(err).WithField("client_id", clientID).Warn("orders refresh failed")
		out.Items = []domain.Order{}
		out.Notices = append(out.Notices, domain.ErrorNotice("Impossible de récupérer les commandes."))
		return out
	}
	out.Items = orders
	return out
}

func (s *Service) record(sess domain.Session, entityID string, action domain.Action, reason string) {
	if s.activity != nil {
		s.activity.Record(sess, domain.EntityOrder, entityID, action, reason)
	}
}

func (s *Service) refused(reason string) {
	if s.refusals != nil {
		s.refusals.RecordRefusedEdit(reason)
	}
}
