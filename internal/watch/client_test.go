package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/wire"
)

// serveFrames upgrades each connection, writes frames in order and then either
// closes or waits for the client to leave.
func serveFrames(t *testing.T, frames []Frame, hold bool) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		if hold {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRunAppliesFramesInOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	url := serveFrames(t, []Frame{
		frame(t, "initial_data", []wire.Faculty{record("a", domain.StatusAway, base)}),
		{Type: "garbage", Data: []byte(`{}`)},
		frame(t, "status_updated", record("a", domain.StatusBusy, base.Add(time.Second))),
	}, false)

	client := NewClient(url, nil)
	var seen []string
	err := client.Run(context.Background(), func(f Frame, _ []string, _ *View) {
		seen = append(seen, f.Type)
	})
	require.Error(t, err)
	assert.Equal(t, []string{"initial_data", "status_updated"}, seen)

	got, ok := client.View().Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusBusy, got.Status)
}

func TestClientRunStopsOnCancel(t *testing.T) {
	url := serveFrames(t, []Frame{frame(t, "initial_data", []wire.Faculty{})}, true)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(url, nil)
	synced := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- client.Run(ctx, func(Frame, []string, *View) { close(synced) })
	}()

	select {
	case <-synced:
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot not received")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClientRunDialFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", nil)
	err := client.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunWithRetryResetsBackoffAfterSnapshot(t *testing.T) {
	var sessions atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		sessions.Add(1)
		_ = conn.WriteJSON(Frame{Type: "initial_data", Data: []byte(`[]`)})
	}))
	t.Cleanup(srv.Close)

	client := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	client.minBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := client.RunWithRetry(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Doubling without a reset would allow about six sessions in a second.
	assert.GreaterOrEqual(t, sessions.Load(), int32(12))
}
