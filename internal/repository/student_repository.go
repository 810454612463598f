package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

// StudentRepository handles student learning profiles.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByUserID retrieves the profile of a student user.
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT s.user_id, u.full_name, u.email, s.grade, s.teacher_id, s.difficulty_score, s.updated_at
		 FROM students s JOIN users u ON u.id = s.user_id
		 WHERE s.user_id = $1`, userID,
	).Scan(&s.UserID, &s.FullName, &s.Email, &s.Grade, &s.TeacherID, &s.DifficultyScore, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByTeacher returns the teacher's students ordered by grade then name.
func (r *StudentRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.user_id, u.full_name, u.email, s.grade, s.teacher_id, s.difficulty_score, s.updated_at
		 FROM students s JOIN users u ON u.id = s.user_id
		 WHERE s.teacher_id = $1
		 ORDER BY s.grade, u.full_name`, teacherID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.UserID, &s.FullName, &s.Email, &s.Grade, &s.TeacherID, &s.DifficultyScore, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
