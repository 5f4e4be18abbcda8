package fidomac_test

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fidomac/fidomac-go/internal/mockmac"
	"github.com/fidomac/fidomac-go/pkg/apdu"
	"github.com/fidomac/fidomac-go/pkg/channel"
	"github.com/fidomac/fidomac-go/pkg/discovery"
	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/session"
	"github.com/fidomac/fidomac-go/pkg/version"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

func startMock(t *testing.T, config mockmac.ServerConfig) *mockmac.Server {
	t.Helper()
	s := mockmac.NewServer(config)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

// dialReady dials target and waits for the session to open.
func dialReady(t *testing.T, target string, config session.Config) *session.Session {
	t.Helper()

	sess, err := session.Dial(target, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	ready := make(chan session.ReadyEvent, 1)
	sess.OnReady(func(ev session.ReadyEvent) { ready <- ev })

	select {
	case ev := <-ready:
		assert.Equal(t, target, ev.Target)
		assert.Equal(t, sess.ConnectionID(), ev.ConnectionID)
	case <-sess.Done():
		t.Fatalf("session closed before open: %v", sess.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for session to open")
	}
	return sess
}

func TestE2E_PingEcho(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{})
	sess := dialReady(t, s.URL(), session.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sent, err := sess.Send(wire.Message{Command: "U2F_PING", Payload: "hi"}, "usb").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0xD0, 0x01, 0x01, 0x00, 0x02, 0x68, 0x69}, sent)

	got, err := sess.ReceiveContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, sent, got)
}

func TestE2E_APDUExchange(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{
		Responder: func(apdu []byte) []byte {
			if len(apdu) >= 2 && apdu[1] == 0xA4 {
				return []byte{0x90, 0x00}
			}
			return []byte{0x6D, 0x00}
		},
	})
	client := apdu.NewClient(dialReady(t, s.URL(), session.Config{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame, err := client.Exchange(ctx, []byte{0x00, 0xA4, 0x04, 0x00}, "nfc")
	require.NoError(t, err)
	assert.Equal(t, wire.TransportNFC, frame.Transport)
	assert.Equal(t, wire.CommandAPDU, frame.Command)
	assert.Equal(t, []byte{0x90, 0x00}, frame.Payload)

	frame, err = client.Exchange(ctx, []byte{0x00, 0xFF}, "ble")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6D, 0x00}, frame.Payload)

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, wire.TransportBLE, frames[1].Transport)
}

func TestE2E_ConcurrentReceiversServedInOrder(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{})
	sess := dialReady(t, s.URL(), session.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Receivers registered before any frame arrives.
	first := sess.Receive()
	second := sess.Receive()
	assert.Equal(t, 2, sess.Waiting())

	for _, text := range []string{"one", "two"} {
		_, err := sess.Send(wire.Message{Command: wire.CommandPing, Payload: text}, "any").Wait(ctx)
		require.NoError(t, err)
	}

	a, err := first.Wait(ctx)
	require.NoError(t, err)
	b, err := second.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "one", string(a[wire.HeaderSize:]))
	assert.Equal(t, "two", string(b[wire.HeaderSize:]))
}

func TestE2E_UnsolicitedFramesAreBuffered(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{})
	sess := dialReady(t, s.URL(), session.Config{})

	require.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Not a valid frame; the session queues it verbatim.
	require.NoError(t, s.Broadcast([]byte{0x01, 0x02, 0x03}))
	require.Eventually(t, func() bool { return sess.Buffered() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sess.ReceiveContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestE2E_ServerCloseIsTerminal(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{})
	sess := dialReady(t, s.URL(), session.Config{})

	pending := sess.Receive()
	require.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.DisconnectAll(websocket.CloseGoingAway, "shutdown")

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not close")
	}
	assert.Equal(t, session.StateClosed, sess.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := pending.Wait(ctx)
	assert.ErrorIs(t, err, session.ErrChannelClosed)

	_, err = sess.Send(wire.NewPing(nil), "any").Wait(ctx)
	assert.ErrorIs(t, err, session.ErrChannelClosed)

	_, err = sess.Receive().Wait(ctx)
	assert.ErrorIs(t, err, session.ErrChannelClosed)
}

func TestE2E_DialRefused(t *testing.T) {
	sess, err := session.Dial("ws://127.0.0.1:1/", session.Config{
		Channel: channel.Config{HandshakeTimeout: time.Second},
	})
	require.NoError(t, err)

	pending := sess.Receive()

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, sess.Err(), session.ErrChannelClosed)
}

func TestE2E_KeepAlive(t *testing.T) {
	s := startMock(t, mockmac.ServerConfig{})
	sess := dialReady(t, s.URL(), session.Config{
		Channel: channel.Config{
			KeepAlive: &channel.KeepAliveConfig{
				PingInterval:   20 * time.Millisecond,
				PongTimeout:    50 * time.Millisecond,
				MaxMissedPongs: 2,
			},
		},
	})

	// The mock answers pings, so the session survives several intervals.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, session.StateOpen, sess.State())
}

// memoryLogger collects events in memory.
type memoryLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (m *memoryLogger) Log(ev log.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *memoryLogger) frames(dir log.Direction) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Frame != nil && ev.Direction == dir {
			n++
		}
	}
	return n
}

func TestE2E_ProtocolLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.flog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	serverLog := &memoryLogger{}
	s := startMock(t, mockmac.ServerConfig{Logger: serverLog})

	sess := dialReady(t, s.URL(), session.Config{
		ConnectionID:   "e2e-conn",
		ProtocolLogger: fl,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = apdu.NewClient(sess).Exchange(ctx, []byte{0x00, 0xA4}, "usb")
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	<-sess.Done()
	require.NoError(t, fl.Close())

	// The server saw one frame each way.
	assert.Eventually(t, func() bool {
		return serverLog.frames(log.DirectionIn) == 1 && serverLog.frames(log.DirectionOut) == 1
	}, 2*time.Second, 10*time.Millisecond)

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var frames, states int
	var commands []uint8
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "e2e-conn", ev.ConnectionID)

		switch {
		case ev.Frame != nil:
			frames++
			require.NotNil(t, ev.Frame.Command)
			commands = append(commands, *ev.Frame.Command)
		case ev.StateChange != nil:
			states++
		}
	}

	assert.Equal(t, 2, frames)
	assert.Equal(t, []uint8{uint8(wire.CommandAPDU), uint8(wire.CommandAPDU)}, commands)
	assert.GreaterOrEqual(t, states, 2)
}

// TestE2E_Discovery advertises the mock over mDNS and connects to the
// browsed address.
func TestE2E_Discovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mDNS integration test in short mode")
	}

	s := startMock(t, mockmac.ServerConfig{Address: "127.0.0.1:0"})

	adv := discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())
	err := adv.Advertise(&discovery.AdvertiseInfo{
		Instance: "fidomac-e2e",
		Port:     s.Port(),
		Path:     mockmac.DefaultPath,
		Version:  version.Current,
	})
	if err != nil {
		t.Skipf("mDNS unavailable: %v", err)
	}
	defer adv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc, err := discovery.NewBrowser(discovery.BrowserConfig{}).FindFirst(ctx)
	if err != nil {
		t.Skipf("mDNS browse failed: %v", err)
	}
	assert.Equal(t, s.Port(), svc.Port)
	assert.Equal(t, mockmac.DefaultPath, svc.Path)
}
