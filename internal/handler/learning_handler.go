package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studysaathi/learning-backend/internal/learning"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/validator"
)

// LearningHandler exposes the adaptive question loop over REST.
type LearningHandler struct {
	learningService *service.LearningService
}

// NewLearningHandler creates a new LearningHandler.
func NewLearningHandler(learningService *service.LearningService) *LearningHandler {
	return &LearningHandler{learningService: learningService}
}

// Start godoc
// POST /api/v1/student/learning/sessions
// Opens a session for the course and loads the first question set.
func (h *LearningHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.StartLearningRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.learningService.Start(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		failLearning(c, err)
		return
	}
	respondState(c, http.StatusCreated, state)
}

// Current godoc
// GET /api/v1/student/learning/sessions/current
func (h *LearningHandler) Current(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := h.learningService.Current(claims.UserID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrLearningSessionNotFound)
		return
	}
	state, err := h.learningService.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		failLearning(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// Get godoc
// GET /api/v1/student/learning/sessions/:id
func (h *LearningHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	state, err := h.learningService.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		failLearning(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// Select godoc
// POST /api/v1/student/learning/sessions/:id/select
func (h *LearningHandler) Select(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.OptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.learningService.Select(c.Request.Context(), claims.UserID, c.Param("id"), *req.OptionIndex)
	if err != nil {
		failLearning(c, err)
		return
	}
	respondAction(c, res)
}

// Submit godoc
// POST /api/v1/student/learning/sessions/:id/submit
// Answers with option_index, or with the current selection when it is omitted.
func (h *LearningHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SubmitRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	res, err := h.learningService.Submit(c.Request.Context(), claims.UserID, c.Param("id"), req.OptionIndex)
	if err != nil {
		failLearning(c, err)
		return
	}
	respondAction(c, res)
}

// Advance godoc
// POST /api/v1/student/learning/sessions/:id/advance
func (h *LearningHandler) Advance(c *gin.Context) {
	claims := middleware.GetClaims(c)

	res, err := h.learningService.Advance(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		failLearning(c, err)
		return
	}
	respondAction(c, res)
}

// Retry godoc
// POST /api/v1/student/learning/sessions/:id/retry
// Re-sends the failed request with the same answers.
func (h *LearningHandler) Retry(c *gin.Context) {
	claims := middleware.GetClaims(c)

	state, err := h.learningService.Retry(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		failLearning(c, err)
		return
	}
	respondState(c, http.StatusOK, state)
}

// Abandon godoc
// DELETE /api/v1/student/learning/sessions/:id
func (h *LearningHandler) Abandon(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.learningService.Abandon(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		failLearning(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "learning session closed"})
}

// respondState sends the state, or the matching error envelope when the
// question set could not be loaded. The state is attached either way.
func respondState(c *gin.Context, status int, state *model.LearningSessionState) {
	if code, failStatus, failed := failureCode(state); failed {
		response.FailWithData(c, failStatus, code, state)
		return
	}
	response.Success(c, status, state)
}

// respondAction answers 409 for actions the session ignored in its phase.
func respondAction(c *gin.Context, res *service.ActionResult) {
	if !res.Accepted {
		response.FailWithData(c, http.StatusConflict, response.ErrInvalidTransition, res)
		return
	}
	if code, failStatus, failed := failureCode(&res.State); failed {
		response.FailWithData(c, failStatus, code, res)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func failureCode(state *model.LearningSessionState) (response.ErrCode, int, bool) {
	if state.View.Phase != learning.PhaseError || state.View.Failure == nil {
		return "", 0, false
	}
	if state.View.Failure.Kind == learning.FailureProtocol {
		return response.ErrQuestionServiceInvalid, http.StatusBadGateway, true
	}
	return response.ErrQuestionServiceDown, http.StatusServiceUnavailable, true
}

// learningErrCode maps learning errors to an HTTP status and error code.
func learningErrCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrLearningSessionNotFound):
		return http.StatusNotFound, response.ErrLearningSessionNotFound
	case errors.Is(err, service.ErrCourseNotFound):
		return http.StatusNotFound, response.ErrCourseNotFound
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusForbidden, response.ErrStudentAccessOnly
	case errors.Is(err, learning.ErrInvalidInput):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, learning.ErrFetchInFlight):
		return http.StatusConflict, response.ErrFetchInFlight
	case errors.Is(err, learning.ErrNotRetryable):
		return http.StatusConflict, response.ErrNotRetryable
	case errors.Is(err, learning.ErrAlreadyStarted):
		return http.StatusConflict, response.ErrInvalidTransition
	case errors.Is(err, learning.ErrSessionClosed), errors.Is(err, learning.ErrStaleFetch):
		return http.StatusGone, response.ErrLearningSessionClosed
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func failLearning(c *gin.Context, err error) {
	status, code := learningErrCode(err)
	response.Fail(c, status, code)
}
