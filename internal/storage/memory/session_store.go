package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

type sessionEntry struct {
	user    domain.User
	expires time.Time
}

// SessionStore — кэш профилей сессий в памяти процесса с истечением по TTL.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	now     func() time.Time
}

// NewSessionStore создаёт пустой кэш сессий.
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]sessionEntry), now: time.Now}
}

// Get возвращает профиль, если запись есть и не истекла; истёкшая запись удаляется.
func (s *SessionStore) Get(_ context.Context, key string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return domain.User{}, false, nil
	}
	if !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return domain.User{}, false, nil
	}
	return entry.user, true, nil
}

func (s *SessionStore) Set(_ context.Context, key string, user domain.User, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = sessionEntry{user: user, expires: now.Add(ttl)}

	// Попутно выметаем протухшие записи, чтобы карта не росла без ограничений.
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len возвращает число записей, включая ещё не выметенные истёкшие.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
