package repository

import (
	"context"
	"membership-service/internal/models"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = 10 * time.Minute

// MemorySessionRepository is a process-local session store for running
// without Redis. Sessions do not survive a restart.
type MemorySessionRepository struct {
	sessions *gocache.Cache
	states   *gocache.Cache
	// stateMu makes read-and-delete of a state atomic.
	stateMu sync.Mutex
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		states:   gocache.New(gocache.NoExpiration, memoryCleanupInterval),
	}
}

func (r *MemorySessionRepository) SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	copied := *session
	r.sessions.Set(session.ID, &copied, ttl)
	return nil
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	value, found := r.sessions.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

func (r *MemorySessionRepository) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	r.states.Set(state, struct{}{}, ttl)
	return nil
}

func (r *MemorySessionRepository) ConsumeState(ctx context.Context, state string) (bool, error) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	_, found := r.states.Get(state)
	r.states.Delete(state)
	return found, nil
}
