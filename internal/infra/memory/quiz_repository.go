package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"training-quiz-service/internal/domain"
)

// QuizLoader fetches module quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error)
}

// ModuleLister is implemented by loaders that can enumerate their modules.
type ModuleLister interface {
	ListModules(ctx context.Context) ([]domain.ModuleSummary, error)
}

// QuizRepository caches module quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.ModuleQuiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error) {
	if quiz, ok := r.cached(moduleID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(moduleID, func() (interface{}, error) {
		if quiz, ok := r.cached(moduleID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, moduleID)
		if err != nil {
			return domain.ModuleQuiz{}, err
		}

		r.mu.Lock()
		r.cache[moduleID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.ModuleQuiz{}, err
	}
	return result.(domain.ModuleQuiz), nil
}

// ListModules delegates to the loader when it can enumerate modules.
func (r *QuizRepository) ListModules(ctx context.Context) ([]domain.ModuleSummary, error) {
	lister, ok := r.loader.(ModuleLister)
	if !ok {
		return []domain.ModuleSummary{}, nil
	}
	return lister.ListModules(ctx)
}

// Invalidate drops a cached module so the next read reloads it.
func (r *QuizRepository) Invalidate(moduleID string) {
	r.mu.Lock()
	delete(r.cache, moduleID)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(moduleID string) (domain.ModuleQuiz, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[moduleID]; ok && entry.expiresAt.After(now) {
		return entry.quiz, true
	}
	return domain.ModuleQuiz{}, false
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.ModuleQuiz
}

func NewStaticQuizLoader(quizzes map[string]domain.ModuleQuiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, moduleID string) (domain.ModuleQuiz, error) {
	if quiz, ok := l.quizzes[moduleID]; ok {
		return quiz, nil
	}
	return domain.ModuleQuiz{}, fmt.Errorf("%w: %s", domain.ErrContentNotFound, moduleID)
}

func (l *StaticQuizLoader) ListModules(_ context.Context) ([]domain.ModuleSummary, error) {
	out := make([]domain.ModuleSummary, 0, len(l.quizzes))
	for id, quiz := range l.quizzes {
		out = append(out, domain.ModuleSummary{ModuleID: id, Title: quiz.Title, QuestionCount: len(quiz.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}
