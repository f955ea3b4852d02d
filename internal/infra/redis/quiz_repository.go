package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"training-quiz-service/internal/domain"
)

const contentKeyPrefix = "quiz:content:"

// QuizLoader fetches module quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error)
}

// ModuleLister is implemented by loaders that can enumerate their modules.
type ModuleLister interface {
	ListModules(ctx context.Context) ([]domain.ModuleSummary, error)
}

// QuizRepository caches whole module quizzes in Redis as JSON and falls back
// to a loader on cache miss:
//
//	SET quiz:content:{moduleID} {json} EX ttl+jitter
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error) {
	if quiz, ok := r.cached(ctx, moduleID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(moduleID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, moduleID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, moduleID)
		if err != nil {
			return domain.ModuleQuiz{}, err
		}

		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.ModuleQuiz{}, fmt.Errorf("encode quiz %s: %w", moduleID, err)
		}
		// cache fill is best effort; the loaded quiz is still served
		if err := r.client.Set(ctx, contentKey(moduleID), payload, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache quiz %s: %v", moduleID, err)
		}
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

// Purge drops cached content for the given modules, or for every module when
// none are given. It returns the number of keys removed.
func (r *QuizRepository) Purge(ctx context.Context, moduleIDs ...string) (int64, error) {
	keys := make([]string, 0, len(moduleIDs))
	for _, id := range moduleIDs {
		keys = append(keys, contentKey(id))
	}
	if len(keys) == 0 {
		iter := r.client.Scan(ctx, 0, contentKeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return 0, err
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return r.client.Del(ctx, keys...).Result()
}

func (r *QuizRepository) cached(ctx context.Context, moduleID string) (domain.ModuleQuiz, bool) {
	payload, err := r.client.Get(ctx, contentKey(moduleID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached quiz %s: %v", moduleID, err)
		}
		return domain.ModuleQuiz{}, false
	}
	var quiz domain.ModuleQuiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		log.Printf("decode cached quiz %s: %v", moduleID, err)
		return domain.ModuleQuiz{}, false
	}
	return quiz, true
}

func contentKey(moduleID string) string {
	return contentKeyPrefix + moduleID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
