package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-engine/internal/domain"
)

// QuizLoader loads quiz definition JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDefinition{}, domain.ErrQuizUnavailable
	}
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("load quiz definition: %w", err)
	}
	var def domain.QuizDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("unmarshal quiz definition: %w", err)
	}
	return def, nil
}
