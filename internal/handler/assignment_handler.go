package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/validator"
)

// AssignmentHandler handles assignment uploads, listings and submissions.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// Create godoc
// POST /api/v1/teacher/assignments
// Multipart form: title, grade, file (PDF).
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var form model.CreateAssignmentForm
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	a, err := h.assignmentService.Create(c.Request.Context(), claims.UserID, &form, file, header)
	if err != nil {
		failUpload(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignment": a})
}

// ListForTeacher godoc
// GET /api/v1/teacher/assignments
func (h *AssignmentHandler) ListForTeacher(c *gin.Context) {
	claims := middleware.GetClaims(c)

	list, err := h.assignmentService.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assignments": list})
}

// ListSubmissions godoc
// GET /api/v1/teacher/assignments/:id/submissions
// Lists submissions newest first, paginated with page and per_page.
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, pagination, err := h.assignmentService.ListSubmissions(c.Request.Context(), claims.UserID, id, page, perPage)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAssignmentOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": list}, pagination)
}

// ListForStudent godoc
// GET /api/v1/student/assignments
// Lists the assignments of the student's grade with submission status.
func (h *AssignmentHandler) ListForStudent(c *gin.Context) {
	claims := middleware.GetClaims(c)

	list, err := h.assignmentService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assignments": list})
}

// Submit godoc
// POST /api/v1/student/assignments/:id/submission
// Multipart form: file (PDF). A new upload replaces the previous one.
func (h *AssignmentHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	sub, err := h.assignmentService.Submit(c.Request.Context(), claims.UserID, id, file, header)
	if err != nil {
		failUpload(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

func failUpload(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
