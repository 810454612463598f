package handler

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/middleware"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/service"
)

type staticRoster struct {
	grades []model.RosterGrade
	err    error
}

func (r staticRoster) GetRoster(context.Context, int) ([]model.RosterGrade, error) {
	return r.grades, r.err
}

func openActivityStream(t *testing.T, feed service.EventFeed, roster RosterSource) *bufio.Reader {
	t.Helper()
	h := NewActivityHandler(feed, roster, zerolog.Nop())
	r := gin.New()
	r.GET("/activity", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{Role: model.RoleTeacher, UserID: 3})
		c.Next()
	}, h.ActivitySSE)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/activity", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

// nextData returns the payload of the next data line.
func nextData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	type line struct {
		s   string
		err error
	}
	done := make(chan line, 1)
	go func() {
		for {
			s, err := r.ReadString('\n')
			if err != nil || strings.HasPrefix(s, "data:") {
				done <- line{s, err}
				return
			}
		}
	}()
	select {
	case l := <-done:
		require.NoError(t, l.err)
		return strings.TrimSpace(strings.TrimPrefix(l.s, "data:"))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return ""
	}
}

func TestActivitySSESnapshotThenEvents(t *testing.T) {
	feed := newMemFeed()
	body := openActivityStream(t, feed, staticRoster{grades: []model.RosterGrade{
		{Grade: 5, Students: []model.RosterEntry{{FullName: "Asha"}}},
	}})

	snapshot := nextData(t, body)
	assert.Contains(t, snapshot, `"type":"snapshot"`)
	assert.Contains(t, snapshot, "Asha")

	feed.send(t, config.CacheKey.TeacherActivityChannel("3"), []byte(`{"type":"answered","student_id":7}`))
	assert.JSONEq(t, `{"type":"answered","student_id":7}`, nextData(t, body))
}

func TestActivitySSESkipsFailedSnapshot(t *testing.T) {
	feed := newMemFeed()
	body := openActivityStream(t, feed, staticRoster{err: errors.New("db down")})

	feed.send(t, config.CacheKey.TeacherActivityChannel("3"), []byte(`{"type":"advanced"}`))
	assert.JSONEq(t, `{"type":"advanced"}`, nextData(t, body))
}
