package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository создаёт PostgreSQL-реализацию AuditRepository.
func NewAuditRepository(store *Store) domain.AuditRepository {
	return &auditRepository{db: store.DB()}
}

func (r *auditRepository) Append(event domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, entity, entity_id, action, actor, reason, occurred)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, event.ID, event.Entity, event.EntityID, event.Action, event.Actor, event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) List(entity domain.Entity, entityID string) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity, entity_id, action, actor, reason, occurred
		FROM audit_events
		WHERE entity = $1 AND entity_id = $2
		ORDER BY occurred ASC, seq ASC
	`, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var event domain.AuditEvent
		if err := rows.Scan(&event.ID, &event.Entity, &event.EntityID, &event.Action, &event.Actor, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Occurred = event.Occurred.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

var _ domain.AuditRepository = (*auditRepository)(nil)
