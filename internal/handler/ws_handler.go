package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	ws "github.com/studysaathi/learning-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a learning session over a WebSocket.
type WSHandler struct {
	feed            service.EventFeed
	learningService *service.LearningService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(feed service.EventFeed, learningService *service.LearningService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		feed:            feed,
		learningService: learningService,
		log:             logger.Component(log, "ws_handler"),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// LearningStream godoc
// WS /ws/v1/student/learning/:id/stream
// Accepts learner actions and pushes every state change of the session.
// Closing the socket leaves the session open.
func (h *WSHandler) LearningStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	studentID := claims.UserID
	sessionID := c.Param("id")

	// Reject unknown sessions before upgrading so the client gets a normal HTTP error.
	state, err := h.learningService.Get(c.Request.Context(), studentID, sessionID)
	if err != nil {
		failLearning(c, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Learner connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := h.feed.Subscribe(ctx, config.CacheKey.LearningEventsChannel(sessionID))
	defer unsubscribe()
	go h.forwardEvents(ctx, conn, events, wsLog)
	go conn.KeepAlive(ctx)

	if err := conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Source: ws.SourceReply, State: *state}); err != nil {
		wsLog.Debug().Err(err).Msg("Initial state write failed")
		return
	}

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if err := h.handleAction(ctx, conn, studentID, sessionID, &msg); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}

// handleAction runs one client action and writes its reply.
func (h *WSHandler) handleAction(ctx context.Context, conn *ws.Conn, studentID int, sessionID string, msg *ws.Request) error {
	var (
		res *service.ActionResult
		err error
	)

	switch msg.Action {
	case ws.ActionPing:
		return conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
	case ws.ActionState:
		var state *model.LearningSessionState
		state, err = h.learningService.Get(ctx, studentID, sessionID)
		if err == nil {
			res = &service.ActionResult{State: *state, Accepted: true}
		}
	case ws.ActionSelect:
		if msg.OptionIndex == nil {
			return conn.WriteError(string(response.ErrValidation), "option_index is required")
		}
		res, err = h.learningService.Select(ctx, studentID, sessionID, *msg.OptionIndex)
	case ws.ActionSubmit:
		res, err = h.learningService.Submit(ctx, studentID, sessionID, msg.OptionIndex)
	case ws.ActionAdvance:
		res, err = h.learningService.Advance(ctx, studentID, sessionID)
	case ws.ActionRetry:
		var state *model.LearningSessionState
		state, err = h.learningService.Retry(ctx, studentID, sessionID)
		if err == nil {
			res = &service.ActionResult{State: *state, Accepted: true}
		}
	default:
		return conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
	}

	if err != nil {
		_, code := learningErrCode(err)
		return conn.WriteError(string(code), response.GetMessage(code))
	}

	accepted := res.Accepted
	return conn.WriteTyped(ws.StateResponse{
		Event:    ws.EventState,
		Source:   ws.SourceReply,
		Accepted: &accepted,
		State:    res.State,
	})
}

// forwardEvents relays PubSub events of the session until ctx is done.
func (h *WSHandler) forwardEvents(ctx context.Context, conn *ws.Conn, ch <-chan string, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			var ev model.LearningEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				log.Warn().Err(err).Msg("Malformed learning event")
				continue
			}
			if err := conn.WriteTyped(ws.StateResponse{
				Event:  ws.EventState,
				Source: ws.SourceChannel,
				Type:   ev.Type,
				State:  ev.State,
			}); err != nil {
				return
			}
		}
	}
}
