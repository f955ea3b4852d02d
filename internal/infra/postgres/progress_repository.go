package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/progress"
)

// ProgressRepository stores each user's progress record as JSONB, with the
// total score and level denormalised into columns for ranking queries.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

func (r *ProgressRepository) Load(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	return loadProgress(ctx, r.pool, userID, `SELECT data FROM user_progress WHERE user_id=$1`)
}

func (r *ProgressRepository) Save(ctx context.Context, userID string, p domain.UserProgress) error {
	return saveProgress(ctx, r.pool, userID, p)
}

// Update locks the user's row with SELECT ... FOR UPDATE for the duration of
// apply. A placeholder row is inserted first so a new user is locked too.
func (r *ProgressRepository) Update(ctx context.Context, userID string, apply progress.ApplyFunc) (domain.UserProgress, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO user_progress (user_id, data) VALUES ($1, 'null') ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return domain.UserProgress{}, fmt.Errorf("reserve progress row: %w", err)
	}
	current, found, err := loadProgress(ctx, tx, userID, `SELECT data FROM user_progress WHERE user_id=$1 FOR UPDATE`)
	if err != nil {
		return domain.UserProgress{}, err
	}
	next, err := apply(current, found)
	if err != nil {
		return domain.UserProgress{}, err
	}
	if err := saveProgress(ctx, tx, userID, next); err != nil {
		return domain.UserProgress{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.UserProgress{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func loadProgress(ctx context.Context, q querier, userID, query string) (domain.UserProgress, bool, error) {
	var raw []byte
	err := q.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProgress{}, false, nil
	}
	if err != nil {
		return domain.UserProgress{}, false, fmt.Errorf("load progress: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return domain.UserProgress{}, false, nil
	}
	var p domain.UserProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.UserProgress{}, false, fmt.Errorf("unmarshal progress: %w", err)
	}
	return p, true, nil
}

func saveProgress(ctx context.Context, q querier, userID string, p domain.UserProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO user_progress (user_id, data, total_score, level, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET data = EXCLUDED.data, total_score = EXCLUDED.total_score, level = EXCLUDED.level, updated_at = now()`,
		userID, raw, p.TotalScore, p.Level)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
