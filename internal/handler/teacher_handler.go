package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
)

// TeacherHandler handles the teacher's roster and dashboard endpoints.
type TeacherHandler struct {
	dashboardService *service.DashboardService
}

// NewTeacherHandler creates a new TeacherHandler.
func NewTeacherHandler(dashboardService *service.DashboardService) *TeacherHandler {
	return &TeacherHandler{dashboardService: dashboardService}
}

// GetDashboard godoc
// GET /api/v1/teacher/dashboard
// Returns student, assignment and submission totals plus how many students need focus.
func (h *TeacherHandler) GetDashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)

	data, err := h.dashboardService.GetTeacherDashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// GetStudents godoc
// GET /api/v1/teacher/students
// Returns the teacher's students grouped by grade.
func (h *TeacherHandler) GetStudents(c *gin.Context) {
	claims := middleware.GetClaims(c)

	grades, err := h.dashboardService.GetRoster(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"grades": grades})
}
