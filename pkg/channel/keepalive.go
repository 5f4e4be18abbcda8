package channel

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = 15 * time.Second

	// DefaultPongTimeout is the default time allowed for a pong to arrive.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the default number of missed pongs before the
	// channel is considered dead.
	DefaultMaxMissedPongs = 3
)

// pingPayloadSize is the size of the sequence number carried in pings.
const pingPayloadSize = 4

var errBadPongPayload = errors.New("bad pong payload")

// KeepAliveConfig configures ping/pong liveness monitoring.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings.
	PingInterval time.Duration

	// PongTimeout is how long a ping may stay unanswered before it counts as missed.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive missed pongs that ends the channel.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest time a dead peer can go unnoticed. A pong
// timeout of at least one interval stretches each ping over several ticks.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	cycle := c.PingInterval
	if c.PingInterval > 0 && c.PongTimeout >= c.PingInterval {
		cycle = (c.PongTimeout/c.PingInterval + 1) * c.PingInterval
	}
	return cycle*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// withDefaults fills zero fields.
func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs <= 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// encodePing returns the control payload for ping seq.
func encodePing(seq uint32) []byte {
	buf := make([]byte, pingPayloadSize)
	binary.BigEndian.PutUint32(buf, seq)
	return buf
}

// decodePong extracts the sequence number echoed in a pong.
func decodePong(payload []byte) (uint32, error) {
	if len(payload) != pingPayloadSize {
		return 0, errBadPongPayload
	}
	return binary.BigEndian.Uint32(payload), nil
}

// KeepAlive tracks outstanding pings and reports a dead peer.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(payload []byte) error
	onTimeout func()

	mu          sync.Mutex
	seq         uint32
	pending     bool
	pendingSeq  uint32
	sentAt      time.Time
	missed      int
	lastLatency time.Duration
	running     bool
	stopCh      chan struct{}

	pongCh chan uint32
}

// NewKeepAlive creates a keep-alive monitor. sendPing writes a ping control
// frame carrying payload; onTimeout is called once when the peer is
// considered dead.
func NewKeepAlive(config KeepAliveConfig, sendPing func(payload []byte) error, onTimeout func()) *KeepAlive {
	return &KeepAlive{
		config:    config.withDefaults(),
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 1),
	}
}

// Start begins monitoring until ctx ends or Stop is called.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	stopCh := ka.stopCh
	ka.mu.Unlock()

	go ka.loop(ctx, stopCh)
}

// Stop ends monitoring. It is safe to call more than once.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// HandlePong feeds a received pong payload into the monitor.
func (ka *KeepAlive) HandlePong(payload []byte) {
	seq, err := decodePong(payload)
	if err != nil {
		return
	}
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// MissedPongs returns the current count of consecutive missed pongs.
func (ka *KeepAlive) MissedPongs() int {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.missed
}

// LastLatency returns the round-trip time of the last answered ping.
func (ka *KeepAlive) LastLatency() time.Duration {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.lastLatency
}

func (ka *KeepAlive) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case seq := <-ka.pongCh:
			ka.pong(seq)
		case <-ticker.C:
			if ka.expired() {
				ka.Stop()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
			ka.ping()
		}
	}
}

// ping sends the next ping unless one is still within its pong timeout.
func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	if ka.pending && time.Since(ka.sentAt) < ka.config.PongTimeout {
		ka.mu.Unlock()
		return
	}
	ka.seq++
	seq := ka.seq
	ka.pending = true
	ka.pendingSeq = seq
	ka.sentAt = time.Now()
	ka.mu.Unlock()

	// A failed write is caught by the pong timeout.
	_ = ka.sendPing(encodePing(seq))
}

// expired accounts for an unanswered ping and reports whether the peer is dead.
func (ka *KeepAlive) expired() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.pending && time.Since(ka.sentAt) >= ka.config.PongTimeout {
		ka.pending = false
		ka.missed++
	}
	return ka.missed >= ka.config.MaxMissedPongs
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	// Late pongs for earlier pings are ignored.
	if !ka.pending || seq != ka.pendingSeq {
		return
	}
	ka.pending = false
	ka.missed = 0
	ka.lastLatency = time.Since(ka.sentAt)
}
