package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

type CourseRepository struct {
	pool *pgxpool.Pool
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

func (r *CourseRepository) GetAll(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, title, description, created_at FROM courses ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, key, title, description, created_at FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
