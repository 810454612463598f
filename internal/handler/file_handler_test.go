package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/service"
	"github.com/studysaathi/learning-backend/internal/storage"
)

func newFileRouter(t *testing.T) (*gin.Engine, *storage.URLSigner) {
	t.Helper()
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), storage.BucketSubmissions, "4/9.pdf", strings.NewReader("%PDF-1.4 body")))

	signer := storage.NewURLSigner("file-secret", time.Minute, "http://files.test")
	svc := service.NewAssignmentService(&config.Config{}, nil, nil, store, signer, zerolog.Nop())

	r := gin.New()
	r.GET("/files/:bucket/*key", NewFileHandler(svc, zerolog.Nop()).Download)
	return r, signer
}

func TestFileDownloadWithSignedLink(t *testing.T) {
	r, signer := newFileRouter(t)

	link, err := signer.SignedURL(storage.BucketSubmissions, "4/9.pdf")
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 body", w.Body.String())
}

func TestFileDownloadRejectsForeignToken(t *testing.T) {
	r, signer := newFileRouter(t)

	// A valid link for another object must not open this one.
	link, err := signer.SignedURL(storage.BucketSubmissions, "4/10.pdf")
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/submissions/4/9.pdf?"+u.RawQuery, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "LINK_EXPIRED")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/submissions/4/9.pdf", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFileDownloadMissingObject(t *testing.T) {
	r, signer := newFileRouter(t)

	link, err := signer.SignedURL(storage.BucketSubmissions, "4/11.pdf")
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
