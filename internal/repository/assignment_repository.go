package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

// AssignmentRepository handles assignments and their submissions.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assignments (teacher_id, grade, title, file_path)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.TeacherID, a.Grade, a.Title, a.FilePath,
	).Scan(&a.ID, &a.CreatedAt)
}

// GetByID retrieves an assignment by ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, grade, title, file_path, created_at FROM assignments WHERE id = $1`, id,
	).Scan(&a.ID, &a.TeacherID, &a.Grade, &a.Title, &a.FilePath, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByTeacher returns a teacher's assignments, newest first.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, teacher_id, grade, title, file_path, created_at
		 FROM assignments WHERE teacher_id = $1
		 ORDER BY created_at DESC`, teacherID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.TeacherID, &a.Grade, &a.Title, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ListForStudent returns the assignments of the student's grade published by
// their teacher, with the student's submission status.
func (r *AssignmentRepository) ListForStudent(ctx context.Context, studentID, teacherID, grade int) ([]model.StudentAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.teacher_id, a.grade, a.title, a.file_path, a.created_at, s.submitted_at
		 FROM assignments a
		 LEFT JOIN assignment_submissions s ON s.assignment_id = a.id AND s.student_id = $1
		 WHERE a.teacher_id = $2 AND a.grade = $3
		 ORDER BY a.created_at DESC`, studentID, teacherID, grade,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.StudentAssignment
	for rows.Next() {
		var sa model.StudentAssignment
		if err := rows.Scan(&sa.ID, &sa.TeacherID, &sa.Grade, &sa.Title, &sa.FilePath, &sa.CreatedAt, &sa.SubmittedAt); err != nil {
			return nil, err
		}
		sa.Status = model.SubmissionPending
		if sa.SubmittedAt != nil {
			sa.Status = model.SubmissionSubmitted
		}
		list = append(list, sa)
	}
	return list, rows.Err()
}

// UpsertSubmission records a student's answer file, replacing an earlier one.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, sub *model.Submission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assignment_submissions (assignment_id, student_id, file_path)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (assignment_id, student_id) DO UPDATE
		 SET file_path = EXCLUDED.file_path, submitted_at = NOW()
		 RETURNING id, submitted_at`,
		sub.AssignmentID, sub.StudentID, sub.FilePath,
	).Scan(&sub.ID, &sub.SubmittedAt)
}

// ListSubmissions returns one page of an assignment's submissions with the
// student's name, newest first, plus the total count.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignment_submissions WHERE assignment_id = $1`, assignmentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.assignment_id, s.student_id, COALESCE(u.full_name, ''), s.file_path, s.submitted_at
		 FROM assignment_submissions s
		 LEFT JOIN users u ON u.id = s.student_id
		 WHERE s.assignment_id = $1
		 ORDER BY s.submitted_at DESC
		 LIMIT $2 OFFSET $3`, assignmentID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.StudentName, &s.FilePath, &s.SubmittedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}
