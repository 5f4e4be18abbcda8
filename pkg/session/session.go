package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fidomac/fidomac-go/pkg/channel"
	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/queue"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Session errors.
var (
	// ErrChannelError is broadcast to pending receivers when the channel
	// reports an error. The channel's error is wrapped alongside it.
	ErrChannelError = errors.New("channel error")

	// ErrChannelClosed is broadcast to pending receivers when the channel
	// closes, and returned by Send and Receive afterwards.
	ErrChannelClosed = errors.New("channel closed")

	// ErrInvalidTarget indicates a Dial target that is not a ws:// or wss:// URL.
	ErrInvalidTarget = errors.New("invalid target")
)

// State is the session lifecycle state.
type State int32

const (
	// StateConnecting indicates the channel is not open yet.
	StateConnecting State = iota

	// StateOpen indicates the channel is ready.
	StateOpen

	// StateClosed indicates the channel has closed. Terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ReadyEvent is delivered to readiness listeners when the channel opens.
type ReadyEvent struct {
	ConnectionID string
	Target       string
	Time         time.Time
}

// Config configures a session.
type Config struct {
	// Target names the peer in log events and ReadyEvent. Set by Dial.
	Target string

	// ConnectionID tags log events. A random UUID is used when empty.
	ConnectionID string

	// ProtocolLogger receives frame, state and error events (optional).
	ProtocolLogger log.Logger

	// Channel configures the WebSocket channel built by Dial.
	Channel channel.Config
}

// Session is a client-side transport session over one channel.
type Session struct {
	ch     channel.Channel
	queue  *queue.Queue
	id     string
	target string
	logger log.Logger

	mu        sync.Mutex
	state     State
	closeErr  error
	listeners []func(ReadyEvent)
	ready     *ReadyEvent
	done      chan struct{}
}

// New creates a session over ch and subscribes to its events. ch must not
// have been started.
func New(ch channel.Channel, config Config) *Session {
	if config.ConnectionID == "" {
		config.ConnectionID = uuid.New().String()
	}
	if config.ProtocolLogger == nil {
		config.ProtocolLogger = log.NoopLogger{}
	}

	s := &Session{
		ch:     ch,
		queue:  queue.New(),
		id:     config.ConnectionID,
		target: config.Target,
		logger: config.ProtocolLogger,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
	ch.Start(handler{s})
	return s
}

// Dial creates a session over a new WebSocket channel to target.
func Dial(target string, config Config) (*Session, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidTarget, u.Scheme)
	}

	if config.ConnectionID == "" {
		config.ConnectionID = uuid.New().String()
	}
	config.Target = target
	config.Channel.ConnectionID = config.ConnectionID
	if config.Channel.Logger == nil {
		config.Channel.Logger = config.ProtocolLogger
	}

	return New(channel.NewWebSocket(target, config.Channel), config), nil
}

// ConnectionID returns the identifier used in log events.
func (s *Session) ConnectionID() string {
	return s.id
}

// Target returns the peer name given in Config.
func (s *Session) Target() string {
	return s.target
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns a channel that is closed once the session is Closed and the
// transition has been sent to the protocol logger.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error once the session is Closed, else nil.
func (s *Session) Err() error {
	return s.closedError()
}

// OnReady registers fn to be called when the channel opens. If the session
// is already open, fn is called immediately.
func (s *Session) OnReady(fn func(ReadyEvent)) {
	s.mu.Lock()
	if s.ready != nil {
		ev := *s.ready
		s.mu.Unlock()
		fn(ev)
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Send encodes msg for transport and writes the frame to the channel. The
// returned future resolves with the encoded frame once it has been handed
// to the channel, or rejects with the codec or channel error.
func (s *Session) Send(msg wire.Message, transport string) *queue.Future {
	if err := s.closedError(); err != nil {
		return queue.Rejected(err)
	}

	frame, err := wire.Encode(msg, transport)
	if err != nil {
		return queue.Rejected(err)
	}

	if err := s.ch.Send(frame); err != nil {
		s.logError(err, "send", 0)
		return queue.Rejected(fmt.Errorf("send: %w", err))
	}

	s.logger.Log(s.frameEvent(log.DirectionOut, frame))
	return queue.Resolved(frame)
}

// Receive returns a future for the next inbound frame, delivered as the
// exact bytes the channel received.
func (s *Session) Receive() *queue.Future {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return queue.Rejected(s.closeErr)
	}
	return s.queue.Get()
}

// ReceiveContext waits for the next inbound frame. If ctx ends first the
// receive request is withdrawn, so the next frame goes to a later receiver.
func (s *Session) ReceiveContext(ctx context.Context) ([]byte, error) {
	f := s.Receive()
	data, err := f.Wait(ctx)
	if err == nil || ctx.Err() == nil {
		return data, err
	}

	if s.queue.Cancel(f) {
		return nil, ctx.Err()
	}
	// Completed between the context ending and the cancel.
	return f.Result()
}

// Flush discards buffered inbound frames. Pending receivers keep waiting.
func (s *Session) Flush() {
	s.queue.Flush()
}

// Buffered returns the number of inbound frames nobody has received yet.
func (s *Session) Buffered() int {
	return s.queue.MessageLen()
}

// Waiting returns the number of pending receivers.
func (s *Session) Waiting() int {
	return s.queue.WaiterLen()
}

// Close closes the channel. The transition to Closed happens when the
// channel reports its close.
func (s *Session) Close() error {
	return s.ch.Close()
}

// closedError returns the terminal error once the session is closed.
func (s *Session) closedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return s.closeErr
	}
	return nil
}

func (s *Session) handleOpen() {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateOpen
	ev := ReadyEvent{ConnectionID: s.id, Target: s.target, Time: time.Now()}
	s.ready = &ev
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.logState(StateConnecting, StateOpen, "")

	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *Session) handleError(err error) {
	n := s.queue.FailAll(fmt.Errorf("%w: %w", ErrChannelError, err))
	s.logError(err, "channel", n)
}

func (s *Session) handleClose(err error) {
	closeErr := ErrChannelClosed
	if err != nil {
		closeErr = fmt.Errorf("%w: %w", ErrChannelClosed, err)
	}

	// The state change and the broadcast happen under one lock so no
	// receiver can queue up behind the broadcast.
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateClosed
	s.closeErr = closeErr
	s.listeners = nil
	n := s.queue.FailAll(closeErr)
	s.mu.Unlock()

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.logState(old, StateClosed, reason)
	if n > 0 {
		s.logError(closeErr, "close", n)
	}

	// Done fires after the close is logged so a caller may close its
	// protocol log once Done returns.
	close(s.done)
}

func (s *Session) handleMessage(data []byte) {
	s.logger.Log(s.frameEvent(log.DirectionIn, data))
	s.queue.Put(data)
}

func (s *Session) frameEvent(dir log.Direction, data []byte) log.Event {
	ev := log.NewFrameEvent(s.id, dir, data)
	ev.Target = s.target
	return ev
}

func (s *Session) logState(oldState, newState State, reason string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		Target:       s.target,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logError(err error, op string, pending int) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		Target:       s.target,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Context: op,
			Pending: pending,
		},
	})
}

// handler adapts channel events to the session.
type handler struct {
	s *Session
}

func (h handler) OnOpen()               { h.s.handleOpen() }
func (h handler) OnError(err error)     { h.s.handleError(err) }
func (h handler) OnClose(err error)     { h.s.handleClose(err) }
func (h handler) OnMessage(data []byte) { h.s.handleMessage(data) }

var _ channel.Handler = handler{}
