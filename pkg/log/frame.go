package log

import (
	"time"

	"github.com/fidomac/fidomac-go/pkg/wire"
)

// MaxFrameDataSize is the maximum frame data size included in log events (4 KB).
// Larger frames are truncated to avoid excessive memory usage.
const MaxFrameDataSize = 4096

// NewFrameEvent builds a message event for a raw frame. Header fields are
// filled in when the frame parses.
func NewFrameEvent(connID string, direction Direction, data []byte) Event {
	frame := &FrameEvent{
		Size: len(data),
		Data: data,
	}
	if len(data) > MaxFrameDataSize {
		frame.Data = data[:MaxFrameDataSize]
		frame.Truncated = true
	}

	if f, err := wire.Decode(data); err == nil {
		tr, cmd := uint8(f.Transport), uint8(f.Command)
		frame.Transport = &tr
		frame.Command = &cmd
	}

	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        LayerFrame,
		Category:     CategoryMessage,
		Frame:        frame,
	}
}
