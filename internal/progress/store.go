package progress

import (
	"context"
	"fmt"
	"log"
	"time"

	"training-quiz-service/internal/domain"
)

// Repository persists whole progress records keyed by user id. Save must
// replace the record atomically.
type Repository interface {
	Load(ctx context.Context, userID string) (domain.UserProgress, bool, error)
	Save(ctx context.Context, userID string, progress domain.UserProgress) error
}

// ApplyFunc computes the next record from the current one. found is false
// when the user has no stored record yet.
type ApplyFunc func(current domain.UserProgress, found bool) (domain.UserProgress, error)

// Updater is implemented by repositories that can run a read-modify-write
// inside their own transaction.
type Updater interface {
	Update(ctx context.Context, userID string, apply ApplyFunc) (domain.UserProgress, error)
}

// DefaultTimeout bounds every repository call.
const DefaultTimeout = 5 * time.Second

// Store is the single entry point for reading and changing progress.
type Store struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTimeout bounds each repository call.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{repo: repo, timeout: DefaultTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the user's record. It never fails: a missing record or a read
// error yields a fresh zero record.
func (s *Store) Load(ctx context.Context, userID string) domain.UserProgress {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	p, found, err := s.repo.Load(ctx, userID)
	if err != nil {
		log.Printf("progress load for %s failed, using fresh record: %v", userID, err)
		return domain.NewUserProgress(userID, now)
	}
	if !found {
		return domain.NewUserProgress(userID, now)
	}
	return normalize(p, userID, now)
}

// Update reads the whole record, applies fn and writes the result back. Read
// and write failures wrap domain.ErrStorage and leave the stored record as it
// was; an error from fn is returned unchanged.
func (s *Store) Update(ctx context.Context, userID string, fn func(domain.UserProgress) (domain.UserProgress, error)) (domain.UserProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var fnErr error
	apply := func(current domain.UserProgress, found bool) (domain.UserProgress, error) {
		if !found {
			current = domain.NewUserProgress(userID, s.now())
		}
		next, err := fn(normalize(current.Clone(), userID, s.now()))
		fnErr = err
		return next, err
	}

	if updater, ok := s.repo.(Updater); ok {
		next, err := updater.Update(ctx, userID, apply)
		if fnErr != nil {
			return domain.UserProgress{}, fnErr
		}
		if err != nil {
			return domain.UserProgress{}, fmt.Errorf("%w: update progress for %s: %v", domain.ErrStorage, userID, err)
		}
		return next, nil
	}

	current, found, err := s.repo.Load(ctx, userID)
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("%w: load progress for %s: %v", domain.ErrStorage, userID, err)
	}
	next, err := apply(current, found)
	if err != nil {
		return domain.UserProgress{}, err
	}
	if err := s.repo.Save(ctx, userID, next); err != nil {
		return domain.UserProgress{}, fmt.Errorf("%w: save progress for %s: %v", domain.ErrStorage, userID, err)
	}
	return next, nil
}

// MergeQuizResult folds result and its newly earned badges into the user's
// record in one read-modify-write.
func (s *Store) MergeQuizResult(ctx context.Context, userID, moduleID string, result domain.QuizResult, earned []domain.Badge) (domain.UserProgress, error) {
	return s.Update(ctx, userID, func(current domain.UserProgress) (domain.UserProgress, error) {
		return Merge(current, userID, moduleID, result, earned, s.now()), nil
	})
}

// RecordSection stores content-section progress for a module.
func (s *Store) RecordSection(ctx context.Context, userID, moduleID string, section int, completed bool) (domain.UserProgress, error) {
	if section < 0 {
		return domain.UserProgress{}, fmt.Errorf("%w: section index %d is negative", domain.ErrValidation, section)
	}
	if moduleID == "" {
		return domain.UserProgress{}, fmt.Errorf("%w: module id is required", domain.ErrValidation)
	}
	return s.Update(ctx, userID, func(current domain.UserProgress) (domain.UserProgress, error) {
		return MarkSection(current, userID, moduleID, section, completed, s.now()), nil
	})
}
