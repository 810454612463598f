package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("user with this email already exists")

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a user by their unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, password_hash, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindTeacherByName looks a teacher up by full name, ignoring case.
// The oldest account wins when two teachers share a name.
func (r *UserRepository) FindTeacherByName(ctx context.Context, name string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, password_hash, created_at, updated_at
		 FROM users WHERE role = 'teacher' AND LOWER(full_name) = LOWER($1)
		 ORDER BY id LIMIT 1`, name,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateTeacher inserts a teacher account.
func (r *UserRepository) CreateTeacher(ctx context.Context, u *model.User) error {
	u.Role = model.RoleTeacher
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, role, password_hash)
		 VALUES ($1, $2, 'teacher', $3)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.FullName, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapDuplicateEmail(err)
}

// CreateStudent inserts a student account together with its learning profile
// in a single statement.
func (r *UserRepository) CreateStudent(ctx context.Context, u *model.User, s *model.Student) error {
	u.Role = model.RoleStudent
	err := r.pool.QueryRow(ctx,
		`WITH u AS (
			INSERT INTO users (email, full_name, role, password_hash)
			VALUES ($1, $2, 'student', $3)
			RETURNING id, created_at, updated_at
		), s AS (
			INSERT INTO students (user_id, grade, teacher_id, difficulty_score)
			SELECT id, $4, $5, $6 FROM u
		)
		SELECT id, created_at, updated_at FROM u`,
		u.Email, u.FullName, u.PasswordHash, s.Grade, s.TeacherID, s.DifficultyScore,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapDuplicateEmail(err)
	}
	s.UserID = u.ID
	s.FullName = u.FullName
	s.Email = u.Email
	s.UpdatedAt = u.UpdatedAt
	return nil
}

// UpdatePassword updates a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

func mapDuplicateEmail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}
