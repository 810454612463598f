package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pingServer reads one JSON message with a short pong window and reports the result.
func pingServer(t *testing.T, result chan<- error) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			result <- err
			return
		}
		conn := wrap(raw, 200*time.Millisecond, 50*time.Millisecond)
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go conn.KeepAlive(ctx)

		var req Request
		result <- conn.ReadJSON(&req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPongsKeepIdleConnectionOpen(t *testing.T) {
	result := make(chan error, 1)
	client := dial(t, pingServer(t, result))

	// Reading lets the client answer pings with pongs.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(500 * time.Millisecond)
	require.NoError(t, client.WriteJSON(Request{Action: ActionPing}))

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never read the message")
	}
}

func TestSilentPeerTimesOut(t *testing.T) {
	result := make(chan error, 1)
	dial(t, pingServer(t, result))

	select {
	case err := <-result:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read deadline never fired")
	}
}
