package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStorePutOpenOverwrite(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, BucketSubmissions, "7/12.pdf", strings.NewReader("first")))
	require.NoError(t, store.Put(ctx, BucketSubmissions, "7/12.pdf", strings.NewReader("second")))

	rc, err := store.Open(ctx, BucketSubmissions, "7/12.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))
}

func TestFSStoreRejectsBadKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.pdf", "a/../../b.pdf", "a//b.pdf"} {
		err := store.Put(ctx, BucketAssignments, key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.ErrorIs(t, store.Put(ctx, "secrets", "a.pdf", strings.NewReader("x")), ErrInvalidKey)
}

func TestFSStoreMissingObject(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), BucketAssignments, "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestURLSignerRoundTrip(t *testing.T) {
	s := NewURLSigner("secret", time.Minute, "https://api.example/")
	link, err := s.SignedURL(BucketAssignments, "3/grade-8/1700000000000-unit 1.pdf")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/files/assignments/3/grade-8/1700000000000-unit 1.pdf", u.Path)

	token := u.Query().Get("token")
	assert.NoError(t, s.Verify(token, BucketAssignments, "3/grade-8/1700000000000-unit 1.pdf"))
	assert.ErrorIs(t, s.Verify(token, BucketAssignments, "3/grade-8/other.pdf"), ErrLinkInvalid)
	assert.ErrorIs(t, s.Verify(token, BucketSubmissions, "3/grade-8/1700000000000-unit 1.pdf"), ErrLinkInvalid)
}

func TestURLSignerExpiry(t *testing.T) {
	s := NewURLSigner("secret", 60*time.Second, "http://localhost:8080")
	issued := time.Now()
	s.now = func() time.Time { return issued }

	link, err := s.SignedURL(BucketSubmissions, "1/2.pdf")
	require.NoError(t, err)
	u, _ := url.Parse(link)
	token := u.Query().Get("token")

	s.now = func() time.Time { return issued.Add(59 * time.Second) }
	assert.NoError(t, s.Verify(token, BucketSubmissions, "1/2.pdf"))

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	assert.ErrorIs(t, s.Verify(token, BucketSubmissions, "1/2.pdf"), ErrLinkInvalid)
}
