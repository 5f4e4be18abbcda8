// Package apdu provides a convenience client for U2F APDU and ping
// exchanges on top of a session.
package apdu

import (
	"context"
	"fmt"

	"github.com/fidomac/fidomac-go/pkg/queue"
	"github.com/fidomac/fidomac-go/pkg/session"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Client sends APDUs and pings over a session. Payload contents are not
// interpreted.
type Client struct {
	session *session.Session
}

// NewClient creates a client using s.
func NewClient(s *session.Session) *Client {
	return &Client{session: s}
}

// Session returns the underlying session.
func (c *Client) Session() *session.Session {
	return c.session
}

// SendAPDU sends payload as a U2F_APDU frame.
func (c *Client) SendAPDU(payload []byte, transport string) *queue.Future {
	return c.session.Send(wire.NewAPDU(payload), transport)
}

// Ping sends payload as a U2F_PING frame.
func (c *Client) Ping(payload []byte, transport string) *queue.Future {
	return c.session.Send(wire.NewPing(payload), transport)
}

// ReceiveAPDU returns a future for the next inbound frame, undecoded.
func (c *Client) ReceiveAPDU() *queue.Future {
	return c.session.Receive()
}

// ReceiveFrame waits for the next inbound frame and decodes its header.
func (c *Client) ReceiveFrame(ctx context.Context) (wire.Frame, error) {
	data, err := c.session.ReceiveContext(ctx)
	if err != nil {
		return wire.Frame{}, err
	}
	frame, err := wire.Decode(data)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}

// Exchange sends payload as a U2F_APDU frame and waits for the next
// inbound frame. Responses are matched by order only.
func (c *Client) Exchange(ctx context.Context, payload []byte, transport string) (wire.Frame, error) {
	if _, err := c.SendAPDU(payload, transport).Wait(ctx); err != nil {
		return wire.Frame{}, err
	}
	return c.ReceiveFrame(ctx)
}
