package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO user_feedback (user_id, user_name, feedback_text)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		f.UserID, f.UserName, f.FeedbackText,
	).Scan(&f.ID, &f.CreatedAt)
}
