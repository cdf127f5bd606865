package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-swap/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testPushConfig(serverURL string) PushConfig {
	cfg := DefaultPushConfig("ws"+strings.TrimPrefix(serverURL, "http"), "secret")
	cfg.InitialDelay = 10 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond
	return cfg
}

func TestPushListener_DeliversBothShapes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("auth_token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Bare charge, the usual push shape.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"code":"A","addresses":{"bitcoin":"bc1"},"pricing":{},"timeline":[{"status":"NEW"}]}`))
		// Garbage is skipped.
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		// Wrapped payload; the exchange must be dropped.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"Exchange":{"rate":2},"Charge":{"data":{"code":"B","timeline":[{"status":"PENDING"}]}}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	var mu sync.Mutex
	var got []types.StatusPayload
	listener := NewPushListener(testPushConfig(server.URL), func(p types.StatusPayload) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "A", got[0].Charge.Data.Code)
	assert.Nil(t, got[0].Exchange)
	assert.Equal(t, "B", got[1].Charge.Data.Code)
	assert.Nil(t, got[1].Exchange)
}

func TestPushListener_Reconnects(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		if n == 1 {
			// Drop the first connection abruptly.
			conn.Close()
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"code":"C","timeline":[{"status":"COMPLETED"}]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	received := make(chan types.StatusPayload, 1)
	listener := NewPushListener(testPushConfig(server.URL), func(p types.StatusPayload) {
		select {
		case received <- p:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	select {
	case p := <-received:
		assert.Equal(t, "C", p.Charge.Data.Code)
	case <-time.After(3 * time.Second):
		t.Fatal("no payload after reconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, connections, 2)
}

func TestDecodeStatusPayload_RejectsMissingCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare charge", `{"timeline":[]}`},
		{"wrapped charge", `{"Charge":{"data":{"addresses":{"bitcoin":"x"},"timeline":[{"status":"NEW"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := types.DecodeStatusPayload([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
