package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/progress"
)

// maxTxRetries bounds optimistic retries when a watched record changes mid-update.
const maxTxRetries = 5

// ProgressRepository stores each user's progress as one JSON document:
//
//	SET progress:{userID} {json}
type ProgressRepository struct {
	client *redis.Client
}

func NewProgressRepository(client *redis.Client) *ProgressRepository {
	return &ProgressRepository{client: client}
}

func (r *ProgressRepository) Load(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	return load(ctx, r.client, userID)
}

func (r *ProgressRepository) Save(ctx context.Context, userID string, p domain.UserProgress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress for %s: %w", userID, err)
	}
	return r.client.Set(ctx, progressKey(userID), payload, 0).Err()
}

// Update runs apply inside WATCH/MULTI so a concurrent writer forces a retry
// instead of a lost update.
func (r *ProgressRepository) Update(ctx context.Context, userID string, apply progress.ApplyFunc) (domain.UserProgress, error) {
	key := progressKey(userID)
	var next domain.UserProgress

	txf := func(tx *redis.Tx) error {
		current, found, err := load(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, err = apply(current, found)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode progress for %s: %w", userID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return domain.UserProgress{}, err
		}
	}
	return domain.UserProgress{}, fmt.Errorf("update progress for %s: too much contention", userID)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, cmd getter, userID string) (domain.UserProgress, bool, error) {
	payload, err := cmd.Get(ctx, progressKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserProgress{}, false, nil
	}
	if err != nil {
		return domain.UserProgress{}, false, err
	}
	var p domain.UserProgress
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.UserProgress{}, false, fmt.Errorf("decode progress for %s: %w", userID, err)
	}
	return p, true, nil
}

func progressKey(userID string) string {
	return "progress:" + userID
}
