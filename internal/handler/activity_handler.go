package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // keep a slow query from stalling the stream
)

// RosterSource lists the grades of a teacher's students.
type RosterSource interface {
	GetRoster(ctx context.Context, teacherID int) ([]model.RosterGrade, error)
}

// ActivityHandler streams live learning activity of a teacher's students.
type ActivityHandler struct {
	feed   service.EventFeed
	roster RosterSource
	log    zerolog.Logger
}

func NewActivityHandler(feed service.EventFeed, roster RosterSource, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		feed:   feed,
		roster: roster,
		log:    logger.Component(log, "activity_handler"),
	}
}

// ActivitySSE godoc
// GET /api/v1/teacher/activity
// Sends a roster snapshot, then every learning event of the teacher's students.
func (h *ActivityHandler) ActivitySSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	teacherID := claims.UserID
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	// Headers go out now so the client sees the stream open even without a snapshot.
	c.Writer.Flush()

	h.sendSnapshot(c, reqCtx, teacherID)

	ch, unsubscribe := h.feed.Subscribe(reqCtx, config.CacheKey.TeacherActivityChannel(strconv.Itoa(teacherID)))
	defer unsubscribe()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Int("teacher_id", teacherID).Msg("Teacher attached to activity stream")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int("teacher_id", teacherID).Msg("Teacher detached from activity stream")
			return

		case payload, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward them untouched.
			writeSSEData(c, []byte(payload))

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func (h *ActivityHandler) sendSnapshot(c *gin.Context, ctx context.Context, teacherID int) {
	fetchCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	grades, err := h.roster.GetRoster(fetchCtx, teacherID)
	if err != nil {
		h.log.Warn().Err(err).Int("teacher_id", teacherID).Msg("Roster snapshot failed")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":   "snapshot",
		"grades": grades,
	})
	c.Writer.Flush()
}

func writeSSEData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
