package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a process-local store with the same semantics as
// PostgresRepository. Records are copied on the way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.UserCredential
	order []string
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*models.UserCredential),
		now:  time.Now,
	}
}

func (r *MemoryRepository) FindOne(ctx context.Context, q Query) (*models.UserCredential, error) {
	if q.Empty() {
		return nil, ErrEmptyQuery
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.byID[id]; q.Matches(u) {
			return u.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) Count(ctx context.Context, q Query) (int, error) {
	if q.Empty() {
		return 0, ErrEmptyQuery
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, u := range r.byID {
		if q.Matches(u) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Save(ctx context.Context, user *models.UserCredential) (*models.UserCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := user.Clone()
	now := r.now()

	if saved.ID == "" {
		if r.taken(saved, "") {
			return nil, common.ErrAlreadyExists
		}
		saved.ID = uuid.NewString()
		saved.Version = 1
		saved.CreatedAt = now
		saved.UpdatedAt = now
		r.byID[saved.ID] = saved.Clone()
		r.order = append(r.order, saved.ID)
		return saved, nil
	}

	current, ok := r.byID[saved.ID]
	if !ok || current.Version != saved.Version {
		return nil, common.ErrVersionConflict
	}
	if r.taken(saved, saved.ID) {
		return nil, common.ErrAlreadyExists
	}
	saved.Version++
	saved.CreatedAt = current.CreatedAt
	saved.UpdatedAt = now
	r.byID[saved.ID] = saved.Clone()
	return saved, nil
}

// taken reports whether another record already owns u's username or
// provider identity. Callers hold the lock.
func (r *MemoryRepository) taken(u *models.UserCredential, selfID string) bool {
	for id, other := range r.byID {
		if id == selfID {
			continue
		}
		if other.Username == u.Username {
			return true
		}
		if u.Provider != "" && other.Provider == u.Provider && other.ProviderID == u.ProviderID {
			return true
		}
	}
	return false
}
