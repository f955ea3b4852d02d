package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"training-quiz-service/internal/domain"
)

// QuizLoader loads module quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM module_quizzes WHERE module_id=$1`, moduleID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ModuleQuiz{}, fmt.Errorf("%w: %s", domain.ErrContentNotFound, moduleID)
	}
	if err != nil {
		return domain.ModuleQuiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.ModuleQuiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.ModuleQuiz{}, fmt.Errorf("%w: unmarshal quiz %s: %v", domain.ErrValidation, moduleID, err)
	}
	if quiz.ModuleID == "" {
		quiz.ModuleID = moduleID
	}
	return quiz, nil
}

func (l *QuizLoader) ListModules(ctx context.Context) ([]domain.ModuleSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT module_id, title, COALESCE(jsonb_array_length(data->'questions'), 0)
		FROM module_quizzes
		ORDER BY module_id`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	modules := []domain.ModuleSummary{}
	for rows.Next() {
		var m domain.ModuleSummary
		if err := rows.Scan(&m.ModuleID, &m.Title, &m.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// SaveQuiz validates and upserts module content.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.ModuleQuiz) error {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return err
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO module_quizzes (module_id, title, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (module_id) DO UPDATE SET title = EXCLUDED.title, data = EXCLUDED.data, updated_at = now()`,
		quiz.ModuleID, quiz.Title, raw)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
