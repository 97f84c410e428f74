package websocket

import (
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

func receive(t *testing.T, c *Client) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		return data, ok
	case <-time.After(time.Second):
		t.Fatal("client did not receive message in time")
		return nil, false
	}
}

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	mine := &Client{hub: hub, consoleID: "a", send: make(chan []byte, 4)}
	other := &Client{hub: hub, consoleID: "b", send: make(chan []byte, 4)}
	hub.register <- mine
	hub.register <- other

	hub.BroadcastJSON("a", map[string]string{"msg": "hello"})

	data, ok := receive(t, mine)
	require.True(t, ok)
	assert.JSONEq(t, `{"msg":"hello"}`, string(data))

	// Broadcasts are processed in order, so a message for b arriving
	// means the earlier message for a was never queued for b.
	hub.BroadcastJSON("b", "for b")
	data, _ = receive(t, other)
	assert.Equal(t, `"for b"`, string(data))

	hub.unregister <- mine
	_, ok = receive(t, mine)
	assert.False(t, ok, "send channel should be closed after unregister")
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, consoleID: "a", send: make(chan []byte, 1)}
	slow.send <- []byte("unread")
	other := &Client{hub: hub, consoleID: "b", send: make(chan []byte, 1)}
	hub.register <- slow
	hub.register <- other
	hub.BroadcastJSON("a", 1)

	// Broadcasts are handled in order, so once b has its message the hub
	// has already tried to deliver to the full client.
	hub.BroadcastJSON("b", "after")
	data, ok := receive(t, other)
	require.True(t, ok)
	assert.Equal(t, `"after"`, string(data))

	data, ok = receive(t, slow)
	require.True(t, ok)
	assert.Equal(t, "unread", string(data))
	_, ok = receive(t, slow)
	assert.False(t, ok, "slow client should be dropped")
}

func TestServeWs(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, r.URL.Query().Get("console"), map[string]string{"hello": r.URL.Query().Get("console")})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?console=c1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"c1"}`, string(data))

	// The initial message is queued before registration, so once it has
	// arrived the client is registered.
	hub.BroadcastJSON("c1", map[string]int{"cycle": 2})
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["cycle"])
}
