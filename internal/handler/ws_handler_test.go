package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/learning"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/service"
	ws "github.com/studysaathi/learning-backend/internal/websocket"
)

// memFeed hands out one buffered channel per subscribed PubSub channel.
type memFeed struct {
	mu   sync.Mutex
	subs map[string]chan string
}

func newMemFeed() *memFeed {
	return &memFeed{subs: make(map[string]chan string)}
}

func (f *memFeed) Subscribe(_ context.Context, channel string) (<-chan string, func() error) {
	ch := make(chan string, 8)
	f.mu.Lock()
	f.subs[channel] = ch
	f.mu.Unlock()
	return ch, func() error { return nil }
}

func (f *memFeed) send(t *testing.T, channel string, payload []byte) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		_, ok := f.subs[channel]
		return ok
	}, time.Second, 10*time.Millisecond)

	f.mu.Lock()
	ch := f.subs[channel]
	f.mu.Unlock()
	ch <- string(payload)
}

type wsMessage struct {
	Event    ws.Event  `json:"event"`
	Source   string    `json:"source"`
	Type     string    `json:"type"`
	Accepted *bool     `json:"accepted"`
	State    stateData `json:"state"`
	Code     string    `json:"code"`
}

func newWSServer(t *testing.T, feed service.EventFeed, results ...nextSetResult) (*httptest.Server, *service.LearningService) {
	t.Helper()
	svc := service.NewLearningService(
		studentDir{7: {UserID: 7, Grade: 5, TeacherID: 3}},
		courseDir{3: {ID: 3, Key: "french", Title: "French"}},
		&queuedQuestions{results: results},
		discardEvents{},
		zerolog.Nop(),
	)
	h := NewWSHandler(feed, svc, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/stream/:id", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{Role: model.RoleStudent, UserID: 7})
		c.Next()
	}, h.LearningStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func dialStream(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream/"+sessionID, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, req string) wsMessage {
	t.Helper()
	if req != "" {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLearningStreamActions(t *testing.T) {
	srv, svc := newWSServer(t, newMemFeed(),
		nextSetResult{set: frenchSet()},
		nextSetResult{set: learning.QuestionSet{Score: 70}},
	)
	st, err := svc.Start(context.Background(), 7, 3)
	require.NoError(t, err)

	conn := dialStream(t, srv, st.SessionID)

	msg := exchange(t, conn, "")
	assert.Equal(t, ws.EventState, msg.Event)
	assert.Equal(t, ws.SourceReply, msg.Source)
	assert.Equal(t, learning.PhasePresenting, msg.State.View.Phase)

	msg = exchange(t, conn, `{"action":"select"}`)
	assert.Equal(t, ws.EventError, msg.Event)
	assert.Equal(t, string(response.ErrValidation), msg.Code)

	msg = exchange(t, conn, `{"action":"submit","option_index":1}`)
	require.NotNil(t, msg.Accepted)
	assert.True(t, *msg.Accepted)
	assert.Equal(t, learning.PhaseRevealed, msg.State.View.Phase)
	require.NotNil(t, msg.State.View.Correct)
	assert.True(t, *msg.State.View.Correct)

	msg = exchange(t, conn, `{"action":"submit","option_index":0}`)
	require.NotNil(t, msg.Accepted)
	assert.False(t, *msg.Accepted)
	assert.Equal(t, learning.PhaseRevealed, msg.State.View.Phase)

	msg = exchange(t, conn, `{"action":"advance"}`)
	require.NotNil(t, msg.Accepted)
	assert.True(t, *msg.Accepted)
	assert.Equal(t, learning.PhaseNoContent, msg.State.View.Phase)
	assert.Equal(t, learning.NoContentNotice, msg.State.View.Notice)

	msg = exchange(t, conn, `{"action":"shuffle"}`)
	assert.Equal(t, ws.EventError, msg.Event)
	assert.Equal(t, string(response.ErrInvalidPayload), msg.Code)

	msg = exchange(t, conn, `{"action":"ping"}`)
	assert.Equal(t, ws.EventPong, msg.Event)

	msg = exchange(t, conn, `{"action":"state"}`)
	assert.Equal(t, learning.PhaseNoContent, msg.State.View.Phase)

	// Hanging up leaves the session open.
	require.NoError(t, conn.Close())
	after, err := svc.Get(context.Background(), 7, st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, learning.PhaseNoContent, after.View.Phase)
}

func TestLearningStreamForwardsChannelEvents(t *testing.T) {
	feed := newMemFeed()
	srv, svc := newWSServer(t, feed, nextSetResult{set: frenchSet()})
	st, err := svc.Start(context.Background(), 7, 3)
	require.NoError(t, err)

	conn := dialStream(t, srv, st.SessionID)
	exchange(t, conn, "")

	raw, err := json.Marshal(model.LearningEvent{
		Type:      model.LearningEventSelected,
		StudentID: 7,
		State:     *st,
		At:        time.Now(),
	})
	require.NoError(t, err)
	feed.send(t, config.CacheKey.LearningEventsChannel(st.SessionID), raw)

	msg := exchange(t, conn, "")
	assert.Equal(t, ws.EventState, msg.Event)
	assert.Equal(t, ws.SourceChannel, msg.Source)
	assert.Equal(t, model.LearningEventSelected, msg.Type)
	assert.Equal(t, st.SessionID, msg.State.SessionID)
}

func TestLearningStreamUnknownSession(t *testing.T) {
	srv, _ := newWSServer(t, newMemFeed())

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream/missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
