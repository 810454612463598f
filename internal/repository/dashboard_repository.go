package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

// DashboardRepository handles teacher dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetTeacherSummary retrieves the headline counts for one teacher.
func (r *DashboardRepository) GetTeacherSummary(ctx context.Context, teacherID int) (*model.TeacherDashboard, error) {
	d := &model.TeacherDashboard{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students WHERE teacher_id = $1),
			(SELECT COUNT(*) FROM assignments WHERE teacher_id = $1),
			(SELECT COUNT(*) FROM assignment_submissions s
			   JOIN assignments a ON a.id = s.assignment_id
			  WHERE a.teacher_id = $1),
			(SELECT COUNT(*) FROM students WHERE teacher_id = $1 AND difficulty_score < $2)`,
		teacherID, model.FocusThreshold,
	).Scan(&d.TotalStudents, &d.TotalAssignments, &d.TotalSubmissions, &d.NeedsFocus)
	if err != nil {
		return nil, err
	}
	return d, nil
}
