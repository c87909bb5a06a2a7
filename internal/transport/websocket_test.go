// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timegrapher/internal/pipeline"
)

// newTestWST builds a transport around an httptest server instead of
// binding a real port.
func newTestWST(t *testing.T) (*WebSocketTransport, string) {
	t.Helper()
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 64),
	}
	go wst.handleBroadcasts()

	srv := httptest.NewServer(http.HandlerFunc(wst.handleWebSocket))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { wst.Close() })

	return wst, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, url := newTestWST(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration races the dial return; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		wst.clientsMu.Lock()
		n := len(wst.clients)
		wst.clientsMu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	want := &pipeline.Snapshot{BeatCount: 42, BPH: 28800}
	if err := wst.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got pipeline.Snapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.BeatCount != 42 || got.BPH != 28800 {
		t.Errorf("received BeatCount=%d BPH=%d, want 42, 28800", got.BeatCount, got.BPH)
	}
}

func TestWebSocketSendWithoutClients(t *testing.T) {
	wst, _ := newTestWST(t)

	// Overfill the queue; Send must drop instead of blocking.
	for i := 0; i < 200; i++ {
		if err := wst.Send(&pipeline.Snapshot{BeatCount: i}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
}
