package handler

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/storage"
)

// FileHandler serves stored PDFs behind signed, expiring links.
type FileHandler struct {
	assignmentService *service.AssignmentService
	log               zerolog.Logger
}

func NewFileHandler(assignmentService *service.AssignmentService, log zerolog.Logger) *FileHandler {
	return &FileHandler{
		assignmentService: assignmentService,
		log:               logger.Component(log, "file_handler"),
	}
}

// Download godoc
// GET /files/:bucket/*key?token=
func (h *FileHandler) Download(c *gin.Context) {
	bucket := c.Param("bucket")
	key := strings.TrimPrefix(c.Param("key"), "/")

	rc, err := h.assignmentService.Open(c.Request.Context(), bucket, key, c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrLinkInvalid):
			response.Fail(c, http.StatusForbidden, response.ErrLinkExpired)
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			h.log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Open stored file")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+path.Base(key)+`"`)
	c.Header("Cache-Control", "private, no-store")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Debug().Err(err).Str("key", key).Msg("File download interrupted")
	}
}
