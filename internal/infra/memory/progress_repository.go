package memory

import (
	"context"
	"sync"

	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/progress"
)

// ProgressRepository keeps progress records in a map. Records are cloned on
// the way in and out so callers never share state with the store.
type ProgressRepository struct {
	mu      sync.Mutex
	records map[string]domain.UserProgress
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{records: make(map[string]domain.UserProgress)}
}

func (r *ProgressRepository) Load(_ context.Context, userID string) (domain.UserProgress, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.records[userID]
	if !ok {
		return domain.UserProgress{}, false, nil
	}
	return p.Clone(), true, nil
}

func (r *ProgressRepository) Save(_ context.Context, userID string, p domain.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = p.Clone()
	return nil
}

// Update runs apply under the repository lock.
func (r *ProgressRepository) Update(ctx context.Context, userID string, apply progress.ApplyFunc) (domain.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.UserProgress{}, err
	}
	current, found := r.records[userID]
	next, err := apply(current.Clone(), found)
	if err != nil {
		return domain.UserProgress{}, err
	}
	r.records[userID] = next.Clone()
	return next, nil
}
