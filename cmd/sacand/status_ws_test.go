package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(sendBuf, broadcastBuf int) *Hub {
	return NewHub(testLogger(), HubConfig{SendBuf: sendBuf, BroadcastBuf: broadcastBuf})
}

// newFakeClient builds a client without a websocket; the hub tolerates a nil conn.
func newFakeClient(hub *Hub, name string, sendBuf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, sendBuf),
		remoteAddr: name,
		logger:     testLogger(),
	}
}

func runHub(t *testing.T, hub *Hub) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop")
		}
	})
	return cancel
}

func registerAndWait(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(4, 8)
	runHub(t, hub)

	c1 := newFakeClient(hub, "c1", 4)
	c2 := newFakeClient(hub, "c2", 4)
	registerAndWait(t, hub, c1)
	registerAndWait(t, hub, c2)

	msg := []byte(`{"type":"volume_changed","data":{"percent":84.37}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			assert.Equal(t, string(msg), string(got), c.remoteAddr)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(1, 8)
	runHub(t, hub)

	slow := newFakeClient(hub, "slow", 1)
	fast := newFakeClient(hub, "fast", 8)
	registerAndWait(t, hub, slow)
	registerAndWait(t, hub, fast)

	hub.broadcast <- []byte("one")
	hub.broadcast <- []byte("two")

	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[slow]
		return !ok
	}, "slow client not evicted")

	assert.Equal(t, "one", string(<-fast.send))
	assert.Equal(t, "two", string(<-fast.send))

	// The evicted client's queue is closed after the buffered frame.
	assert.Equal(t, "one", string(<-slow.send))
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHub_BroadcastBytesNeverBlocks(t *testing.T) {
	hub := newTestHub(1, 1) // not running: nothing drains the queue

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			hub.BroadcastBytes([]byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastBytes blocked on a full queue")
	}
	assert.Len(t, hub.broadcast, 1)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := newTestHub(4, 4)
	cancel := runHub(t, hub)

	c := newFakeClient(hub, "c", 4)
	registerAndWait(t, hub, c)

	cancel()
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, "clients not closed on shutdown")

	_, open := <-c.send
	assert.False(t, open)
}

func TestStatusServer_Snapshot(t *testing.T) {
	s := NewStatusServer(testLogger(), HubConfig{})
	assert.False(t, s.snapshot().VolumeKnown)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.PublishVolume(VolumeStatus{Percent: 84.37, Raw: 60, Max: 100, Command: "Increment(5)", At: at})

	snap := s.snapshot()
	assert.True(t, snap.VolumeKnown)
	assert.Equal(t, 84.37, snap.Percent)
	assert.Equal(t, int64(60), snap.Raw)
	assert.Equal(t, int64(100), snap.Max)
	assert.Equal(t, at, snap.VolumeAt)

	// Nothing runs the hub, so the frame is parked in the broadcast queue.
	require.Len(t, s.hub.broadcast, 1)
	var env struct {
		Type string       `json:"type"`
		Data wsVolumeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-s.hub.broadcast, &env))
	assert.Equal(t, "volume_changed", env.Type)
	assert.Equal(t, wsVolumeData{Percent: 84.37, Raw: 60, Max: 100, Command: "Increment(5)"}, env.Data)
}

func TestStatusServer_WebSocketFeed(t *testing.T) {
	s := NewStatusServer(testLogger(), HubConfig{})
	runHub(t, s.Hub())

	mux := http.NewServeMux()
	s.Register(mux, defaultStatusPath)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + defaultStatusPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var initMsg struct {
		Type string      `json:"type"`
		Data wsStateInit `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&initMsg))
	assert.Equal(t, "state_init", initMsg.Type)
	assert.False(t, initMsg.Data.VolumeKnown)

	waitUntil(t, time.Second, func() bool {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		return len(s.hub.clients) == 1
	}, "websocket client not registered")

	s.PublishVolume(VolumeStatus{Percent: 79.37, Raw: 50, Max: 100, Command: "NoOp()", At: time.Now()})

	var changed struct {
		Type string       `json:"type"`
		Data wsVolumeData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&changed))
	assert.Equal(t, "volume_changed", changed.Type)
	assert.Equal(t, 79.37, changed.Data.Percent)
	assert.Equal(t, int64(50), changed.Data.Raw)
	assert.Equal(t, "NoOp()", changed.Data.Command)
}
