package channel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Handler that records every callback.
type recorder struct {
	mu       sync.Mutex
	opened   chan struct{}
	closed   chan struct{}
	errs     []error
	closeErr error
	messages chan []byte
}

func newRecorder() *recorder {
	return &recorder{
		opened:   make(chan struct{}),
		closed:   make(chan struct{}),
		messages: make(chan []byte, 16),
	}
}

func (r *recorder) OnOpen() { close(r.opened) }

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) OnClose(err error) {
	r.mu.Lock()
	r.closeErr = err
	r.mu.Unlock()
	close(r.closed)
}

func (r *recorder) OnMessage(data []byte) { r.messages <- data }

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) closeReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeErr
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
	}
}

// newServer starts a WebSocket server running serve for each connection.
func newServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// echo returns every binary message and answers close frames.
func echo(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(mt, data); err != nil {
			return
		}
	}
}

func TestWebSocketEcho(t *testing.T) {
	url := newServer(t, echo)

	ws := NewWebSocket(url, Config{})
	rec := newRecorder()

	assert.Equal(t, StateConnecting, ws.State())
	err := ws.Send([]byte{1})
	assert.ErrorIs(t, err, ErrNotOpen)

	ws.Start(rec)
	waitFor(t, rec.opened, "open")
	assert.Equal(t, StateOpen, ws.State())

	require.NoError(t, ws.Send([]byte{0xF1, 0xD0, 0xFF, 0x01, 0x00, 0x00}))

	select {
	case got := <-rec.messages:
		assert.Equal(t, []byte{0xF1, 0xD0, 0xFF, 0x01, 0x00, 0x00}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for echo")
	}

	require.NoError(t, ws.Close())
	waitFor(t, rec.closed, "close")

	assert.Equal(t, StateClosed, ws.State())
	assert.Empty(t, rec.errors())
	assert.ErrorIs(t, ws.Send([]byte{1}), ErrNotOpen)

	// Second close is a no-op.
	assert.NoError(t, ws.Close())
}

func TestWebSocketIgnoresTextMessages(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x42})
		echo(conn)
	})

	ws := NewWebSocket(url, Config{})
	rec := newRecorder()
	ws.Start(rec)
	defer ws.Close()

	select {
	case got := <-rec.messages:
		assert.Equal(t, []byte{0x42}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestWebSocketPeerClose(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		// Drain until the client answers.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ws := NewWebSocket(url, Config{})
	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.closed, "close")

	var closeErr *websocket.CloseError
	require.True(t, errors.As(rec.closeReason(), &closeErr))
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	assert.Empty(t, rec.errors())
}

func TestWebSocketAbnormalClose(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.UnderlyingConn().Close()
	})

	ws := NewWebSocket(url, Config{})
	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.closed, "close")

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, errs[0], rec.closeReason())
	assert.Equal(t, StateClosed, ws.State())
}

func TestWebSocketDialFailure(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/", Config{HandshakeTimeout: time.Second})
	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.closed, "close")

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "dial")
	assert.Equal(t, errs[0], rec.closeReason())

	select {
	case <-rec.opened:
		t.Fatal("OnOpen must not be called")
	default:
	}
}

func TestWebSocketCloseWhileConnecting(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/", Config{})
	rec := newRecorder()

	require.NoError(t, ws.Close())
	ws.Start(rec)
	waitFor(t, rec.closed, "close")

	assert.ErrorIs(t, rec.closeReason(), ErrClosed)
	assert.Empty(t, rec.errors())
}

func TestWebSocketKeepAliveAnswered(t *testing.T) {
	// gorilla answers pings automatically while the server reads.
	url := newServer(t, echo)

	ws := NewWebSocket(url, Config{
		KeepAlive: &KeepAliveConfig{
			PingInterval:   20 * time.Millisecond,
			PongTimeout:    50 * time.Millisecond,
			MaxMissedPongs: 2,
		},
	})
	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.opened, "open")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateOpen, ws.State())
	assert.Empty(t, rec.errors())

	require.NoError(t, ws.Close())
	waitFor(t, rec.closed, "close")
}

func TestWebSocketKeepAliveTimeout(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		conn.SetPingHandler(func(string) error { return nil })
		echo(conn)
	})

	ws := NewWebSocket(url, Config{
		KeepAlive: &KeepAliveConfig{
			PingInterval:   20 * time.Millisecond,
			PongTimeout:    10 * time.Millisecond,
			MaxMissedPongs: 2,
		},
	})
	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.closed, "close")

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrKeepAliveTimeout)
	assert.ErrorIs(t, rec.closeReason(), ErrKeepAliveTimeout)
}

func TestWebSocketSubprotocol(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{"fidomac.v1"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		echo(conn)
	}))
	t.Cleanup(srv.Close)

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), Config{
		Subprotocols: []string{"fidomac.v2", "fidomac.v1"},
	})
	assert.Empty(t, ws.Subprotocol())

	rec := newRecorder()
	ws.Start(rec)
	waitFor(t, rec.opened, "open")
	assert.Equal(t, "fidomac.v1", ws.Subprotocol())

	require.NoError(t, ws.Close())
	waitFor(t, rec.closed, "close")
}
