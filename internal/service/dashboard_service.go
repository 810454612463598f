package service

import (
	"context"
	"sort"

	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
)

// DashboardService handles the teacher dashboard and roster.
type DashboardService struct {
	repo     *repository.DashboardRepository
	students *repository.StudentRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository, students *repository.StudentRepository) *DashboardService {
	return &DashboardService{repo: repo, students: students}
}

// GetTeacherDashboard returns the headline counts for a teacher.
func (s *DashboardService) GetTeacherDashboard(ctx context.Context, teacherID int) (*model.TeacherDashboard, error) {
	return s.repo.GetTeacherSummary(ctx, teacherID)
}

// GetRoster returns the teacher's students grouped by grade.
func (s *DashboardService) GetRoster(ctx context.Context, teacherID int) ([]model.RosterGrade, error) {
	students, err := s.students.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return GroupRoster(students), nil
}

// GroupRoster groups students by grade in ascending order and labels each by score.
func GroupRoster(students []model.Student) []model.RosterGrade {
	grades := []model.RosterGrade{}
	index := make(map[int]int)
	for _, st := range students {
		i, ok := index[st.Grade]
		if !ok {
			i = len(grades)
			index[st.Grade] = i
			grades = append(grades, model.RosterGrade{Grade: st.Grade, Students: []model.RosterEntry{}})
		}
		grades[i].Students = append(grades[i].Students, model.RosterEntry{
			UserID:   st.UserID,
			FullName: st.FullName,
			Email:    st.Email,
			Score:    st.DifficultyScore,
			Status:   model.StatusFor(st.DifficultyScore),
		})
	}
	sort.SliceStable(grades, func(i, j int) bool { return grades[i].Grade < grades[j].Grade })
	return grades
}
