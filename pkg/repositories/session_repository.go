package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ekaya-inc/datadoc-engine/pkg/explorer"
)

// SessionRepository stores explorer sessions by session ID.
type SessionRepository interface {
	// Get returns the session and refreshes its expiry.
	Get(ctx context.Context, id uuid.UUID) (*explorer.Session, bool)
	Save(ctx context.Context, id uuid.UUID, session *explorer.Session)
	Delete(ctx context.Context, id uuid.UUID)
	Count(ctx context.Context) int
}

type sessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository creates a session store whose entries expire after ttl of
// inactivity. Expired entries are purged every cleanupInterval.
func NewSessionRepository(ttl, cleanupInterval time.Duration) SessionRepository {
	return &sessionRepository{
		cache: cache.New(ttl, cleanupInterval),
	}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*explorer.Session, bool) {
	key := id.String()
	x, found := r.cache.Get(key)
	if !found {
		return nil, false
	}
	session := x.(*explorer.Session)
	r.cache.Set(key, session, cache.DefaultExpiration)
	return session, true
}

func (r *sessionRepository) Save(ctx context.Context, id uuid.UUID, session *explorer.Session) {
	r.cache.Set(id.String(), session, cache.DefaultExpiration)
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) {
	r.cache.Delete(id.String())
}

func (r *sessionRepository) Count(ctx context.Context) int {
	return r.cache.ItemCount()
}
