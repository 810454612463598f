package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/service"
)

type stubValidator map[string]*service.Claims

func (s stubValidator) ValidateToken(tok string) (*service.Claims, error) {
	if c, ok := s[tok]; ok {
		return c, nil
	}
	if tok == "expired" {
		return nil, jwt.ErrTokenExpired
	}
	return nil, errors.New("bad token")
}

type stubSessions struct{ valid string }

func (s stubSessions) ValidateSession(_ context.Context, _ int, jti string) error {
	if jti != s.valid {
		return service.ErrSessionInvalidated
	}
	return nil
}

func claimsFor(role model.Role, jti string) *service.Claims {
	c := &service.Claims{Role: role, UserID: 5}
	c.ID = jti
	return c
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	v := stubValidator{
		"student": claimsFor(model.RoleStudent, "jti-1"),
		"teacher": claimsFor(model.RoleTeacher, "jti-1"),
		"old":     claimsFor(model.RoleStudent, "jti-0"),
	}
	r := gin.New()
	g := r.Group("/", RequireJWT(v), CheckSingleDeviceSession(stubSessions{valid: "jti-1"}))
	g.GET("/student", RequireRole(model.RoleStudent), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	g.GET("/teacher", RequireRole(model.RoleTeacher), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestAuthChain(t *testing.T) {
	r := newAuthRouter()
	cases := []struct {
		name   string
		path   string
		header string
		query  string
		status int
		code   string
	}{
		{"missing token", "/student", "", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage token", "/student", "Bearer nope", "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"expired token", "/student", "Bearer expired", "", http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"superseded login", "/student", "Bearer old", "", http.StatusUnauthorized, "SESSION_INVALIDATED"},
		{"wrong role", "/teacher", "Bearer student", "", http.StatusForbidden, "TEACHER_ACCESS_ONLY"},
		{"student ok", "/student", "Bearer student", "", http.StatusOK, ""},
		{"query token", "/teacher", "", "?token=teacher", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Contains(t, w.Body.String(), tc.code)
			}
		})
	}
}

func TestStudentWSAuthRejectsTeachers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", RequireStudentWSAuth(stubValidator{"teacher": claimsFor(model.RoleTeacher, "j")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=teacher", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterRefillsPerInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Minute)
	base := time.Now()
	rl.now = func() time.Time { return base }

	_, ok := rl.take("1.2.3.4")
	assert.True(t, ok)
	_, ok = rl.take("1.2.3.4")
	assert.True(t, ok)
	wait, ok := rl.take("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	_, ok = rl.take("5.6.7.8")
	assert.True(t, ok, "buckets are per client")

	rl.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok = rl.take("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiterMiddlewareSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 1, time.Minute)

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	payload := strings.Repeat("adaptive learning ", 200)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) {
		c.String(http.StatusOK, payload[:len(payload)/2])
		c.String(http.StatusOK, payload[len(payload)/2:])
	})
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })
	r.GET("/files/x.pdf", func(c *gin.Context) { c.String(http.StatusOK, payload) })
	r.GET("/report", func(c *gin.Context) { c.Data(http.StatusOK, "application/pdf", []byte(payload)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	r.ServeHTTP(w, req)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/files/x.pdf", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Accept-Encoding", "br;q=1.0")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())

	// Pooled encoders are reset between responses.
	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/big", nil)
		req.Header.Set("Accept-Encoding", "br;q=0.9")
		r.ServeHTTP(w, req)
		body, err = io.ReadAll(brotli.NewReader(w.Body))
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))
	}
}
