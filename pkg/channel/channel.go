package channel

import (
	"errors"
	"net/http"
	"time"

	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Channel errors.
var (
	// ErrNotOpen indicates a send while the channel is connecting or closed.
	ErrNotOpen = errors.New("channel not open")

	// ErrClosed is reported by OnClose when the channel was closed locally.
	ErrClosed = errors.New("channel closed")

	// ErrKeepAliveTimeout indicates the peer stopped answering pings.
	ErrKeepAliveTimeout = errors.New("keep-alive timeout")
)

// Handler receives channel events. Callbacks are invoked sequentially from
// the channel's own goroutine.
type Handler interface {
	// OnOpen is called once when the channel is ready for traffic.
	OnOpen()

	// OnError is called when an error occurs. It may be followed by OnClose.
	OnError(err error)

	// OnClose is called exactly once when the channel is closed. err
	// describes why; a peer close frame is reported as *websocket.CloseError.
	OnClose(err error)

	// OnMessage is called for each inbound binary message.
	OnMessage(data []byte)
}

// Channel is a message-oriented bidirectional channel.
type Channel interface {
	// Start subscribes h and begins connecting. It does not block; progress
	// is reported through h. Start may only be called once.
	Start(h Handler)

	// Send writes one binary message.
	Send(data []byte) error

	// Close closes the channel. The handler's OnClose reports completion.
	Close() error
}

// State is the channel connection state.
type State int32

const (
	// StateConnecting indicates the connection is being established.
	StateConnecting State = iota

	// StateOpen indicates the channel can carry traffic.
	StateOpen

	// StateClosing indicates a close is in progress.
	StateClosing

	// StateClosed indicates the channel is closed.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a WebSocket channel.
type Config struct {
	// HandshakeTimeout bounds the WebSocket opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single write (0 = no timeout).
	WriteTimeout time.Duration

	// CloseTimeout is how long Close waits for the peer's close frame (default: 1s).
	CloseTimeout time.Duration

	// MaxMessageSize limits inbound messages (default: largest frame).
	MaxMessageSize int64

	// KeepAlive enables ping/pong liveness monitoring when non-nil.
	KeepAlive *KeepAliveConfig

	// Header is sent with the opening handshake.
	Header http.Header

	// Subprotocols are offered in the opening handshake, most preferred first.
	Subprotocols []string

	// Logger receives channel state and error events (optional).
	Logger log.Logger

	// ConnectionID tags log events.
	ConnectionID string
}

// Channel defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = time.Second
	DefaultMaxMessageSize   = wire.HeaderSize + wire.MaxPayloadSize
)

// DefaultConfig returns the default channel configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: DefaultHandshakeTimeout,
		CloseTimeout:     DefaultCloseTimeout,
		MaxMessageSize:   DefaultMaxMessageSize,
	}
}
