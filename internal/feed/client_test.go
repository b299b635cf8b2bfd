package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trading-dashboard-go/internal/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testServer is a minimal push-channel backend: it records handshakes and
// inbound frames and lets tests push messages to the latest connection.
type testServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	conns  chan *websocket.Conn
	frames chan envelope
	auth   chan string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		conns:  make(chan *websocket.Conn, 4),
		frames: make(chan envelope, 16),
		auth:   make(chan string, 4),
	}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.auth <- r.Header.Get("Authorization")

		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn

		// Keep reading so control frames are processed and inbound
		// frames get recorded.
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame envelope
			if json.Unmarshal(payload, &frame) == nil {
				ts.frames <- frame
			}
		}
	}))
	t.Cleanup(ts.server.Close)

	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http")
}

func (ts *testServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func (ts *testServer) waitFrame(t *testing.T) envelope {
	t.Helper()
	select {
	case frame := <-ts.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return envelope{}
	}
}

func (ts *testServer) push(t *testing.T, conn *websocket.Conn, topic string, data string) {
	t.Helper()
	payload := `{"topic":"` + topic + `","data":` + data + `}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func newTestClient(url string) *Client {
	return NewClient(&config.Feed{
		URL:               url,
		ReconnectDelay:    50 * time.Millisecond,
		HeartbeatInterval: 100 * time.Millisecond,
	}, zap.NewNop())
}

func TestConnect(t *testing.T) {
	t.Run("HandshakeCarriesBearerToken", func(t *testing.T) {
		ts := newTestServer(t)
		client := newTestClient(ts.url())
		defer client.Disconnect()

		require.NoError(t, client.Connect(context.Background(), "tok-1"))

		assert.Equal(t, "Bearer tok-1", <-ts.auth)
		assert.True(t, client.IsConnected())
	})

	t.Run("Idempotent", func(t *testing.T) {
		ts := newTestServer(t)
		client := newTestClient(ts.url())
		defer client.Disconnect()

		require.NoError(t, client.Connect(context.Background(), "tok-1"))
		require.NoError(t, client.Connect(context.Background(), "tok-1"))

		// Only one handshake reached the server.
		<-ts.auth
		select {
		case <-ts.auth:
			t.Fatal("second Connect dialed again")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("RefusedHandshakeSurfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient("ws" + strings.TrimPrefix(server.URL, "http"))

		err := client.Connect(context.Background(), "bad")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "handshake refused")
		assert.False(t, client.IsConnected())
	})
}

func TestSubscribeDispatch(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts.url())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	conn := ts.waitConn(t)

	received := make(chan json.RawMessage, 4)
	sub, err := client.Subscribe("market-data/NIFTY", func(data json.RawMessage) {
		received <- data
	})
	require.NoError(t, err)
	require.NotNil(t, sub)

	// The subscribe frame reaches the server.
	frame := ts.waitFrame(t)
	assert.Equal(t, "subscribe", frame.Action)
	assert.Equal(t, "market-data/NIFTY", frame.Topic)

	// A pushed message lands in the handler.
	ts.push(t, conn, "market-data/NIFTY", `{"symbol":"NIFTY","price":19500}`)
	select {
	case data := <-received:
		assert.JSONEq(t, `{"symbol":"NIFTY","price":19500}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the message")
	}

	// Messages on unsubscribed topics are dropped silently.
	ts.push(t, conn, "market-data/BANKNIFTY", `{"symbol":"BANKNIFTY"}`)
	select {
	case <-received:
		t.Fatal("received message for a topic without a handler")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedPayloadIsDroppedNotFatal(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts.url())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	conn := ts.waitConn(t)

	received := make(chan json.RawMessage, 4)
	_, err := client.Subscribe("market-data/NIFTY", func(data json.RawMessage) {
		received <- data
	})
	require.NoError(t, err)
	ts.waitFrame(t) // subscribe frame

	// Garbage, then a frame without a topic, then a valid message. The
	// dispatch loop must survive all of it.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`%%% not json %%%`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{"x":1}}`)))
	ts.push(t, conn, "market-data/NIFTY", `{"symbol":"NIFTY","price":1}`)

	select {
	case data := <-received:
		assert.Contains(t, string(data), "NIFTY")
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop died on malformed input")
	}
	assert.True(t, client.IsConnected())
}

func TestHandlerPanicIsContained(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts.url())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	conn := ts.waitConn(t)

	received := make(chan struct{}, 4)
	calls := 0
	_, err := client.Subscribe("trades", func(json.RawMessage) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		received <- struct{}{}
	})
	require.NoError(t, err)
	ts.waitFrame(t)

	ts.push(t, conn, "trades", `{"id":"t1"}`)
	ts.push(t, conn, "trades", `{"id":"t2"}`)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not survive a handler panic")
	}
}

func TestUnsubscribe(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts.url())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	conn := ts.waitConn(t)

	received := make(chan json.RawMessage, 4)
	sub, err := client.Subscribe("notifications", func(data json.RawMessage) {
		received <- data
	})
	require.NoError(t, err)
	ts.waitFrame(t) // subscribe frame

	client.Unsubscribe(sub)
	frame := ts.waitFrame(t)
	assert.Equal(t, "unsubscribe", frame.Action)

	ts.push(t, conn, "notifications", `{"id":"n1"}`)
	select {
	case <-received:
		t.Fatal("received message after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}

	// Double unsubscribe is a no-op.
	client.Unsubscribe(sub)
	client.Unsubscribe(nil)
}

func TestReconnectRestoresSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts.url())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	first := ts.waitConn(t)

	received := make(chan json.RawMessage, 4)
	_, err := client.Subscribe("trades", func(data json.RawMessage) {
		received <- data
	})
	require.NoError(t, err)
	frame := ts.waitFrame(t)
	assert.Equal(t, "subscribe", frame.Action)

	// Drop the transport server-side. The client must redial on its own
	// and re-announce the retained topic.
	first.Close()

	second := ts.waitConn(t)
	frame = ts.waitFrame(t)
	assert.Equal(t, "subscribe", frame.Action)
	assert.Equal(t, "trades", frame.Topic)

	// The second handshake reused the original token.
	<-ts.auth
	assert.Equal(t, "Bearer tok-1", <-ts.auth)

	ts.push(t, second, "trades", `{"id":"t-after-reconnect"}`)
	select {
	case data := <-received:
		assert.Contains(t, string(data), "t-after-reconnect")
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not survive the reconnect")
	}
}

func TestExplicitConnectDuringReconnectWindow(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(&config.Feed{
		URL:               ts.url(),
		ReconnectDelay:    400 * time.Millisecond,
		HeartbeatInterval: 100 * time.Millisecond,
	}, zap.NewNop())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	first := ts.waitConn(t)

	received := make(chan json.RawMessage, 4)
	_, err := client.Subscribe("trades", func(data json.RawMessage) {
		received <- data
	})
	require.NoError(t, err)
	ts.waitFrame(t)

	// Drop the transport, then beat the pending redial with an explicit
	// Connect landing inside the reconnect delay.
	first.Close()
	require.Eventually(t, func() bool { return !client.IsConnected() }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, client.Connect(context.Background(), "tok-1"))
	second := ts.waitConn(t)
	ts.waitFrame(t) // retained topic re-announced

	// The pending redial must stand down: at most one live connection.
	select {
	case <-ts.conns:
		t.Fatal("redial landed while already connected")
	case <-time.After(600 * time.Millisecond):
	}
	assert.True(t, client.IsConnected())

	ts.push(t, second, "trades", `{"id":"t-live"}`)
	select {
	case data := <-received:
		assert.Contains(t, string(data), "t-live")
	case <-time.After(2 * time.Second):
		t.Fatal("live connection stopped delivering")
	}

	// A later drop of the surviving connection still recovers cleanly.
	second.Close()
	ts.waitConn(t)
	ts.waitFrame(t)
	assert.True(t, client.IsConnected())
}

func TestSubscribeWriteFailureKeepsRegistration(t *testing.T) {
	ts := newTestServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(ts.url(), nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Wedge a dead transport in as the live connection so the announce
	// frame cannot be written.
	client := newTestClient(ts.url())
	client.mu.Lock()
	client.conn = conn
	client.connected = true
	client.closed = false
	client.mu.Unlock()

	sub, err := client.Subscribe("trades", func(json.RawMessage) {})

	// The failed announce is logged, not surfaced: the caller gets a
	// usable handle and the registration stays for the next replay.
	require.NoError(t, err)
	require.NotNil(t, sub)
	client.mu.Lock()
	_, known := client.handlers["trades"]
	client.mu.Unlock()
	assert.True(t, known)

	client.Unsubscribe(sub)
	client.mu.Lock()
	_, known = client.handlers["trades"]
	client.mu.Unlock()
	assert.False(t, known)
}

func TestDisconnect(t *testing.T) {
	t.Run("ClearsSubscriptions", func(t *testing.T) {
		ts := newTestServer(t)
		client := newTestClient(ts.url())

		require.NoError(t, client.Connect(context.Background(), "tok-1"))
		ts.waitConn(t)

		_, err := client.Subscribe("trades", func(json.RawMessage) {})
		require.NoError(t, err)
		ts.waitFrame(t)

		client.Disconnect()
		assert.False(t, client.IsConnected())

		// A fresh connect replays nothing: the registry was cleared.
		require.NoError(t, client.Connect(context.Background(), "tok-1"))
		ts.waitConn(t)
		select {
		case frame := <-ts.frames:
			t.Fatalf("unexpected frame after reconnect: %+v", frame)
		case <-time.After(150 * time.Millisecond):
		}
		client.Disconnect()
	})

	t.Run("SafeWhenNotConnected", func(t *testing.T) {
		client := newTestClient("ws://localhost:1")
		client.Disconnect()
		client.Disconnect()
		assert.False(t, client.IsConnected())
	})

	t.Run("StopsReconnecting", func(t *testing.T) {
		ts := newTestServer(t)
		client := newTestClient(ts.url())

		require.NoError(t, client.Connect(context.Background(), "tok-1"))
		ts.waitConn(t)
		<-ts.auth

		client.Disconnect()

		// No redial after an explicit disconnect.
		select {
		case <-ts.auth:
			t.Fatal("client reconnected after Disconnect")
		case <-time.After(200 * time.Millisecond):
		}
	})
}
