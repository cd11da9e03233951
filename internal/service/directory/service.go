// Package directory реализует CRUD товаров, клиентов и пользователей консоли.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// Service — CRUD справочников. После каждой успешной мутации коллекция перечитывается.
type Service struct {
	catalog  domain.CatalogGateway
	auth     domain.AuthGateway
	activity domain.ActivityRecorder
	logger   *log.Entry
}

// NewService создаёт сервис справочников. activity может быть nil.
func NewService(catalog domain.CatalogGateway, auth domain.AuthGateway, activity domain.ActivityRecorder, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "directory")
	}
	return &Service{catalog: catalog, auth: auth, activity: activity, logger: logger}
}

// ---- товары ----

func (s *Service) ListProducts(ctx context.Context, sess domain.Session) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx, sess)
}

func (s *Service) CreateProduct(ctx context.Context, sess domain.Session, p domain.Product) (domain.Refreshed[domain.Product], error) {
	if errs := p.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.Product]{}, errors.Join(errs...)
	}
	p.ID = 0
	if err := s.catalog.CreateProduct(ctx, sess, p); err != nil {
		return domain.Refreshed[domain.Product]{}, fmt.Errorf("create product: %w", err)
	}
	s.record(sess, domain.EntityProduct, "", domain.ActionCreated, p.Name)
	return refresh(ctx, s, sess, s.catalog.ListProducts, "Impossible de charger les produits.",
		domain.SuccessNotice("Produit ajouté", p.Name+" a été ajouté avec succès.")), nil
}

func (s *Service) UpdateProduct(ctx context.Context, sess domain.Session, id int64, p domain.Product) (domain.Refreshed[domain.Product], error) {
	if id <= 0 {
		return domain.Refreshed[domain.Product]{}, domain.ErrInvalidID
	}
	if errs := p.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.Product]{}, errors.Join(errs...)
	}
	p.ID = id
	if err := s.catalog.UpdateProduct(ctx, sess, id, p); err != nil {
		return domain.Refreshed[domain.Product]{}, fmt.Errorf("update product %d: %w", id, err)
	}
	s.record(sess, domain.EntityProduct, strconv.FormatInt(id, 10), domain.ActionUpdated, "")
	return refresh(ctx, s, sess, s.catalog.ListProducts, "Impossible de charger les produits.",
		domain.SuccessNotice("Produit modifié", p.Name+" a été modifié avec succès.")), nil
}

func (s *Service) DeleteProduct(ctx context.Context, sess domain.Session, id int64) (domain.Refreshed[domain.Product], error) {
	if id <= 0 {
		return domain.Refreshed[domain.Product]{}, domain.ErrInvalidID
	}
	if err := s.catalog.DeleteProduct(ctx, sess, id); err != nil {
		return domain.Refreshed[domain.Product]{}, fmt.Errorf("delete product %d: %w", id, err)
	}
	s.record(sess, domain.EntityProduct, strconv.FormatInt(id, 10), domain.ActionDeleted, "")
	return refresh(ctx, s, sess, s.catalog.ListProducts, "Impossible de charger les produits.",
		domain.SuccessNotice("Produit supprimé", "")), nil
}

// ---- клиенты ----

func (s *Service) ListClients(ctx context.Context, sess domain.Session) ([]domain.Client, error) {
	return s.catalog.ListClients(ctx, sess)
}

func (s *Service) CreateClient(ctx context.Context, sess domain.Session, c domain.Client) (domain.Refreshed[domain.Client], error) {
	if errs := c.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.Client]{}, errors.Join(errs...)
	}
	c.ID = ""
	if err := s.catalog.CreateClient(ctx, sess, c); err != nil {
		return domain.Refreshed[domain.Client]{}, fmt.Errorf("create client: %w", err)
	}
	s.record(sess, domain.EntityClient, "", domain.ActionCreated, c.DisplayName())
	return refresh(ctx, s, sess, s.catalog.ListClients, "Impossible de charger les clients.",
		domain.SuccessNotice("Client ajouté", c.DisplayName()+" a été ajouté avec succès.")), nil
}

func (s *Service) UpdateClient(ctx context.Context, sess domain.Session, id string, c domain.Client) (domain.Refreshed[domain.Client], error) {
	if strings.TrimSpace(id) == "" {
		return domain.Refreshed[domain.Client]{}, domain.ErrInvalidID
	}
	if errs := c.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.Client]{}, errors.Join(errs...)
	}
	c.ID = domain.FlexID(id)
	if err := s.catalog.UpdateClient(ctx, sess, id, c); err != nil {
		return domain.Refreshed[domain.Client]{}, fmt.Errorf("update client %s: %w", id, err)
	}
	s.record(sess, domain.EntityClient, id, domain.ActionUpdated, "")
	return refresh(ctx, s, sess, s.catalog.ListClients, "Impossible de charger les clients.",
		domain.SuccessNotice("Client modifié", c.DisplayName()+" a été modifié avec succès.")), nil
}

func (s *Service) DeleteClient(ctx context.Context, sess domain.Session, id string) (domain.Refreshed[domain.Client], error) {
	if strings.TrimSpace(id) == "" {
		return domain.Refreshed[domain.Client]{}, domain.ErrInvalidID
	}
	if err := s.catalog.DeleteClient(ctx, sess, id); err != nil {
		return domain.Refreshed[domain.Client]{}, fmt.Errorf("delete client %s: %w", id, err)
	}
	s.record(sess, domain.EntityClient, id, domain.ActionDeleted, "")
	return refresh(ctx, s, sess, s.catalog.ListClients, "Impossible de charger les clients.",
		domain.SuccessNotice("Client supprimé", "")), nil
}

// ---- пользователи (только ADMIN) ----

func (s *Service) ListUsers(ctx context.Context, sess domain.Session) ([]domain.User, error) {
	if !sess.HasRole(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return s.auth.ListUsers(ctx, sess)
}

// CreateUser регистрирует пользователя через POST /register.
func (s *Service) CreateUser(ctx context.Context, sess domain.Session, reg domain.Registration) (domain.Refreshed[domain.User], error) {
	if !sess.HasRole(domain.RoleAdmin) {
		return domain.Refreshed[domain.User]{}, domain.ErrForbidden
	}
	if errs := reg.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.User]{}, errors.Join(errs...)
	}
	if err := s.auth.Register(ctx, reg); err != nil {
		return domain.Refreshed[domain.User]{}, fmt.Errorf("register user: %w", err)
	}
	s.record(sess, domain.EntityUser, "", domain.ActionCreated, reg.Email)
	return refresh(ctx, s, sess, s.auth.ListUsers, "Impossible de récupérer les utilisateurs.",
		domain.SuccessNotice("Utilisateur ajouté avec succès.", "")), nil
}

// UpdateUser отправляет PUT /users/{id}; роль и статус приводятся к верхнему регистру.
func (s *Service) UpdateUser(ctx context.Context, sess domain.Session, id string, upd domain.UserUpdate) (domain.Refreshed[domain.User], error) {
	if !sess.HasRole(domain.RoleAdmin) {
		return domain.Refreshed[domain.User]{}, domain.ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return domain.Refreshed[domain.User]{}, domain.ErrInvalidID
	}
	upd = upd.Normalize()
	if errs := upd.Validate(); len(errs) > 0 {
		return domain.Refreshed[domain.User]{}, errors.Join(errs...)
	}
	if err := s.auth.UpdateUser(ctx, sess, id, upd); err != nil {
		return domain.Refreshed[domain.User]{}, fmt.Errorf("update user %s: %w", id, err)
	}
	s.record(sess, domain.EntityUser, id, domain.ActionUpdated, "role "+upd.Role)
	return refresh(ctx, s, sess, s.auth.ListUsers, "Impossible de récupérer les utilisateurs.",
		domain.SuccessNotice("Utilisateur mis à jour.", "")), nil
}

func (s *Service) DeleteUser(ctx context.Context, sess domain.Session, id string) (domain.Refreshed[domain.User], error) {
	if !sess.HasRole(domain.RoleAdmin) {
		return domain.Refreshed[domain.User]{}, domain.ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return domain.Refreshed[domain.User]{}, domain.ErrInvalidID
	}
	if err := s.auth.DeleteUser(ctx, sess, id); err != nil {
		return domain.Refreshed[domain.User]{}, fmt.Errorf("delete user %s: %w", id, err)
	}
	s.record(sess, domain.EntityUser, id, domain.ActionDeleted, "")
	return refresh(ctx, s, sess, s.auth.ListUsers, "Impossible de récupérer les utilisateurs.",
		domain.SuccessNotice("Utilisateur supprimé.", "")), nil
}

func (s *Service) record(sess domain.Session, entity domain.Entity, id string, action domain.Action, reason string) {
	if s.activity != nil {
		s.activity.Record(sess, entity, id, action, reason)
	}
}

// refresh перечитывает коллекцию после мутации; сбой чтения даёт пустой список и уведомление.
func refresh[T any](ctx context.Context, s *Service, sess domain.Session, list func(context.Context, domain.Session) ([]T, error), failure string, success domain.Notice) domain.Refreshed[T] {
	out := domain.Refreshed[T]{Notices: []domain.Notice{success}}
	items, err := list(ctx, sess)
	if err != nil {
		s.logger.WithError(err).Warn("collection refresh failed")
		out.Items = []T{}
		out.Notices = append(out.Notices, domain.ErrorNotice(failure))
		return out
	}
	out.Items = items
	return out
}
