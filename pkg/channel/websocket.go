package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fidomac/fidomac-go/pkg/log"
)

// WebSocket is a Channel over a binary WebSocket connection.
type WebSocket struct {
	target string
	config Config
	dialer *websocket.Dialer

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	handler     Handler
	closeReason error
	keepAlive   *KeepAlive

	writeMu   sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocket creates a channel for target (ws:// or wss:// URL). The
// connection is not attempted until Start.
func NewWebSocket(target string, config Config) *WebSocket {
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		target: target,
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			Subprotocols:     config.Subprotocols,
		},
		state:  StateConnecting,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Target returns the URL the channel connects to.
func (w *WebSocket) Target() string {
	return w.target
}

// Subprotocol returns the subprotocol the peer accepted, or "" if none was
// negotiated or the channel is not open yet.
func (w *WebSocket) Subprotocol() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ""
	}
	return w.conn.Subprotocol()
}

// State returns the current channel state.
func (w *WebSocket) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start subscribes h and connects in the background.
func (w *WebSocket) Start(h Handler) {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.handler = h
		w.mu.Unlock()
		go w.run()
	})
}

// Send writes data as one binary message.
func (w *WebSocket) Send(data []byte) error {
	w.mu.Lock()
	state, conn := w.state, w.conn
	w.mu.Unlock()

	if state != StateOpen || conn == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, state)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close sends a normal close frame and waits up to CloseTimeout for the
// peer to answer before dropping the connection. Closing a channel that is
// still connecting aborts the dial.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	switch w.state {
	case StateClosing, StateClosed:
		w.mu.Unlock()
		return nil
	case StateConnecting:
		w.state = StateClosing
		w.closeReason = ErrClosed
		w.mu.Unlock()
		w.cancel()
		return nil
	}
	w.state = StateClosing
	w.closeReason = ErrClosed
	conn := w.conn
	ka := w.keepAlive
	w.mu.Unlock()

	w.logState(StateOpen, StateClosing, "local close")

	if ka != nil {
		ka.Stop()
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	deadline := time.Now().Add(w.config.CloseTimeout)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return conn.Close()
	}

	select {
	case <-w.done:
	case <-time.After(w.config.CloseTimeout):
		return conn.Close()
	}
	return nil
}

// run dials, reports the open event and then reads until the connection ends.
func (w *WebSocket) run() {
	conn, _, err := w.dialer.DialContext(w.ctx, w.target, w.config.Header)

	w.mu.Lock()
	if err == nil && w.state == StateClosing {
		// Closed while the handshake was in flight.
		conn.Close()
		err = ErrClosed
	}
	if err != nil {
		reason := w.closeReason
		w.mu.Unlock()
		if reason == nil {
			err = fmt.Errorf("dial %s: %w", w.target, err)
			w.reportError(err, "dial")
			reason = err
		}
		w.finish(reason)
		return
	}

	conn.SetReadLimit(w.config.MaxMessageSize)
	w.conn = conn
	w.state = StateOpen
	if w.config.KeepAlive != nil {
		w.keepAlive = NewKeepAlive(*w.config.KeepAlive, w.sendPing, w.keepAliveTimeout)
		conn.SetPongHandler(func(appData string) error {
			w.keepAlive.HandlePong([]byte(appData))
			return nil
		})
		w.keepAlive.Start(w.ctx)
	}
	h := w.handler
	w.mu.Unlock()

	w.logState(StateConnecting, StateOpen, "")
	h.OnOpen()

	w.readLoop(conn, h)
}

func (w *WebSocket) readLoop(conn *websocket.Conn, h Handler) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			reason := w.closeReason
			w.mu.Unlock()

			var closeErr *websocket.CloseError
			switch {
			case reason != nil:
				// Local close or keep-alive failure already reported.
			case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
				reason = closeErr
			default:
				err = fmt.Errorf("read failed: %w", err)
				w.reportError(err, "read")
				reason = err
			}
			w.finish(reason)
			return
		}

		// Text messages are not part of the protocol.
		if mt != websocket.BinaryMessage {
			continue
		}
		h.OnMessage(data)
	}
}

// sendPing writes a ping control frame.
func (w *WebSocket) sendPing(payload []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}
	return conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(w.config.CloseTimeout))
}

// keepAliveTimeout reports the dead peer and drops the connection; the read
// loop then delivers OnClose.
func (w *WebSocket) keepAliveTimeout() {
	w.mu.Lock()
	if w.state != StateOpen {
		w.mu.Unlock()
		return
	}
	w.state = StateClosing
	w.closeReason = ErrKeepAliveTimeout
	conn := w.conn
	w.mu.Unlock()

	w.reportError(ErrKeepAliveTimeout, "keep-alive")
	conn.Close()
}

// reportError logs err and forwards it to the handler.
func (w *WebSocket) reportError(err error, op string) {
	w.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: w.config.ConnectionID,
		Layer:        log.LayerChannel,
		Category:     log.CategoryError,
		Target:       w.target,
		Error: &log.ErrorEventData{
			Layer:   log.LayerChannel,
			Message: err.Error(),
			Context: op,
		},
	})

	w.mu.Lock()
	h := w.handler
	w.mu.Unlock()
	if h != nil {
		h.OnError(err)
	}
}

// finish moves the channel to Closed and reports OnClose exactly once.
func (w *WebSocket) finish(reason error) {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		old := w.state
		w.state = StateClosed
		conn := w.conn
		ka := w.keepAlive
		h := w.handler
		w.mu.Unlock()

		if ka != nil {
			ka.Stop()
		}
		w.cancel()
		if conn != nil {
			conn.Close()
		}
		close(w.done)

		why := ""
		if reason != nil {
			why = reason.Error()
		}
		w.logState(old, StateClosed, why)

		if h != nil {
			h.OnClose(reason)
		}
	})
}

func (w *WebSocket) logState(oldState, newState State, reason string) {
	w.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: w.config.ConnectionID,
		Layer:        log.LayerChannel,
		Category:     log.CategoryState,
		Target:       w.target,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityChannel,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

var _ Channel = (*WebSocket)(nil)
