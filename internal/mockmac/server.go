// Package mockmac provides an in-process mock authenticator service that
// speaks the framed WebSocket protocol. It answers U2F_PING frames by echoing
// them and U2F_APDU frames through a configurable Responder.
package mockmac

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/version"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// DefaultPath is the WebSocket endpoint path.
const DefaultPath = "/"

// StatusNoError is the ISO 7816 success status word.
var StatusNoError = []byte{0x90, 0x00}

// Responder produces the response payload for an APDU. A nil result
// suppresses the response.
type Responder func(apdu []byte) []byte

// StatusResponder answers every APDU with StatusNoError.
func StatusResponder(apdu []byte) []byte {
	return StatusNoError
}

// ServerConfig configures the mock service.
type ServerConfig struct {
	// Address to listen on (e.g., "127.0.0.1:0").
	Address string

	// Path is the WebSocket endpoint (default "/").
	Path string

	// Responder answers APDU frames (default StatusResponder).
	Responder Responder

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnConnect is called when a client connects.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when a client goes away.
	OnDisconnect func(conn *Conn)
}

// Server is a mock authenticator service.
type Server struct {
	config   ServerConfig
	upgrader websocket.Upgrader
	listener net.Listener
	http     *http.Server

	conns   map[*Conn]struct{}
	connsMu sync.RWMutex

	framesMu sync.Mutex
	frames   []wire.Frame

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a mock service.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = "127.0.0.1:0"
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Responder == nil {
		config.Responder = StatusResponder
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    version.SupportedSubprotocols(),
			// Browser origins are not checked by the mock.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*Conn]struct{}),
	}
}

// Start listens and serves until Stop or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.http.Serve(listener)
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return nil
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	err := s.http.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.ws.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the ws:// URL of the endpoint.
func (s *Server) URL() string {
	return "ws://" + s.Addr().String() + s.config.Path
}

// Port returns the listening port.
func (s *Server) Port() uint16 {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

// ConnectionCount returns the number of connected clients.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Frames returns the frames received so far, oldest first.
func (s *Server) Frames() []wire.Frame {
	s.framesMu.Lock()
	defer s.framesMu.Unlock()
	return append([]wire.Frame(nil), s.frames...)
}

// Broadcast sends data unsolicited to every client.
func (s *Server) Broadcast(data []byte) error {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()

	var errs []error
	for conn := range s.conns {
		if err := conn.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisconnectAll sends a close frame to every client.
func (s *Server) DisconnectAll(code int, text string) {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()

	msg := websocket.FormatCloseMessage(code, text)
	for conn := range s.conns {
		_ = conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}

// ServeHTTP upgrades the request and serves the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := &Conn{
		ID:         uuid.New().String(),
		RemoteAddr: r.RemoteAddr,
		ws:         ws,
		server:     s,
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		ws.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.connsMu.Unlock()
	defer s.wg.Done()

	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	conn.serve()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	ws.Close()

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

func (s *Server) record(f wire.Frame) {
	s.framesMu.Lock()
	s.frames = append(s.frames, f)
	s.framesMu.Unlock()
}

// Conn is one client connection.
type Conn struct {
	ID         string
	RemoteAddr string

	ws      *websocket.Conn
	server  *Server
	writeMu sync.Mutex
}

// Send writes data as one binary message.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	c.server.config.Logger.Log(c.frameEvent(log.DirectionOut, data))
	return nil
}

func (c *Conn) serve() {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		c.server.config.Logger.Log(c.frameEvent(log.DirectionIn, data))

		frame, err := wire.Decode(data)
		if err != nil {
			c.server.config.Logger.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: c.ID,
				Layer:        log.LayerFrame,
				Category:     log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerFrame,
					Message: err.Error(),
					Context: "decode",
				},
			})
			continue
		}
		c.server.record(frame)

		resp, ok := c.respond(frame, data)
		if !ok {
			continue
		}
		if err := c.Send(resp); err != nil {
			return
		}
	}
}

// respond builds the reply to one request frame.
func (c *Conn) respond(frame wire.Frame, raw []byte) ([]byte, bool) {
	switch frame.Command {
	case wire.CommandPing:
		return raw, true

	case wire.CommandAPDU:
		payload := c.server.config.Responder(frame.Payload)
		if payload == nil {
			return nil, false
		}
		resp, err := wire.EncodeFrame(wire.Frame{
			Transport: frame.Transport,
			Command:   wire.CommandAPDU,
			Payload:   payload,
		})
		if err != nil {
			return nil, false
		}
		return resp, true

	default:
		return nil, false
	}
}

func (c *Conn) frameEvent(dir log.Direction, data []byte) log.Event {
	ev := log.NewFrameEvent(c.ID, dir, data)
	ev.Target = c.RemoteAddr
	return ev
}
