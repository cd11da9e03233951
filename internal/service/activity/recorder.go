package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// ErrUnknownEntity возвращается для журнала неизвестного типа сущности.
var ErrUnknownEntity = errors.New("unknown audit entity")

// Metrics считает успешные действия консоли.
type Metrics interface {
	RecordActivity(entity, action string)
}

// Recorder пишет успешные мутации в журнал и outbox.
// Ошибки записи только логируются: мутация upstream уже состоялась.
type Recorder struct {
	audit   domain.AuditRepository
	outbox  domain.OutboxRepository
	metrics Metrics
	logger  *log.Entry
	now     func() time.Time
}

// NewRecorder создаёт Recorder. outbox и metrics могут быть nil.
func NewRecorder(audit domain.AuditRepository, outbox domain.OutboxRepository, metrics Metrics, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "activity")
	}
	return &Recorder{
		audit:   audit,
		outbox:  outbox,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

type eventPayload struct {
	ID       string    `json:"id"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entityId"`
	Action   string    `json:"action"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// Record реализует domain.ActivityRecorder.
func (r *Recorder) Record(sess domain.Session, entity domain.Entity, entityID string, action domain.Action, reason string) {
	event := domain.AuditEvent{
		ID:       uuid.NewString(),
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Actor:    sess.Actor(),
		Reason:   reason,
		Occurred: r.now().UTC(),
	}

	logger := r.logger.WithFields(log.Fields{
		"entity":    entity,
		"entity_id": entityID,
		"action":    action,
		"actor":     event.Actor,
	})

	if r.audit != nil {
		if err := r.audit.Append(event); err != nil {
			logger.WithError(err).Warn("failed to append audit event")
		}
	}

	if r.outbox != nil {
		if err := r.enqueue(event); err != nil {
			logger.WithError(err).Warn("failed to enqueue activity event")
		}
	}

	if r.metrics != nil {
		r.metrics.RecordActivity(string(entity), string(action))
	}
	logger.Info("console activity recorded")
}

func (r *Recorder) enqueue(event domain.AuditEvent) error {
	payload, err := json.Marshal(eventPayload{
		ID:       event.ID,
		Entity:   string(event.Entity),
		EntityID: event.EntityID,
		Action:   string(event.Action),
		Actor:    event.Actor,
		Reason:   event.Reason,
		Occurred: event.Occurred,
	})
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	if _, err := r.outbox.Enqueue(domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: string(event.Entity),
		AggregateID:   event.EntityID,
		EventType:     event.EventType(),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

// History возвращает журнал сущности в хронологическом порядке.
func (r *Recorder) History(entity domain.Entity, entityID string) ([]domain.AuditEvent, error) {
	switch entity {
	case domain.EntityProduct, domain.EntityClient, domain.EntityOrder, domain.EntityUser:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, domain.ErrInvalidID
	}
	if r == nil || r.audit == nil {
		return []domain.AuditEvent{}, nil
	}

	events, err := r.audit.List(entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	return events, nil
}

var _ domain.ActivityRecorder = (*Recorder)(nil)
