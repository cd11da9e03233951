package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

// auditRepositoryInMemory хранит журнал действий в памяти (для разработки/тестов).
type auditRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.AuditEvent
}

// NewAuditRepository создаёт in-memory реализацию AuditRepository.
func NewAuditRepository() domain.AuditRepository {
	return &auditRepositoryInMemory{events: make(map[string][]domain.AuditEvent)}
}

func auditKey(entity domain.Entity, entityID string) string {
	return string(entity) + "/" + entityID
}

// Append добавляет событие, сохраняя хронологический порядок внутри сущности.
func (r *auditRepositoryInMemory) Append(event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	key := auditKey(event.Entity, event.EntityID)
	r.events[key] = append(r.events[key], event)

	sort.SliceStable(r.events[key], func(i, j int) bool {
		return r.events[key][i].Occurred.Before(r.events[key][j].Occurred)
	})

	return nil
}

// List возвращает события сущности в хронологическом порядке.
func (r *auditRepositoryInMemory) List(entity domain.Entity, entityID string) ([]domain.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[auditKey(entity, entityID)]
	result := make([]domain.AuditEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.AuditRepository = (*auditRepositoryInMemory)(nil)
