package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/validator"
)

// FeedbackHandler accepts app feedback from any signed-in user.
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// Create godoc
// POST /api/v1/feedback
func (h *FeedbackHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateFeedbackRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	fb, err := h.feedbackService.Submit(c.Request.Context(), claims.UserID, req.FeedbackText)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"feedback": fb})
}
