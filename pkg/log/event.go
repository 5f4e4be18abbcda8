package log

import (
	"time"
)

// Event is one entry of a protocol trace. Exactly one of Frame,
// StateChange and Error is set. The CBOR keys are part of the .flog file
// format and must not be renumbered.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"`
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`

	// Target is the ws:// or wss:// URL of the MAC, when known.
	Target string `cbor:"6,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction is IN for frames read from the MAC and OUT for frames sent to it.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// Layer names the component that recorded an event.
type Layer uint8

const (
	// LayerChannel is the WebSocket connection.
	LayerChannel Layer = 0
	// LayerFrame carries the raw F1 D0 frames.
	LayerFrame Layer = 1
	// LayerSession is the session state machine and its receive queue.
	LayerSession Layer = 2
)

// Category is the kind of payload an event carries.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// StateEntity is the component whose state changed.
type StateEntity uint8

const (
	StateEntityChannel StateEntity = 0
	StateEntitySession StateEntity = 1
)

var (
	directionNames = [...]string{"IN", "OUT"}
	layerNames     = [...]string{"CHANNEL", "FRAME", "SESSION"}
	categoryNames  = [...]string{"MESSAGE", "STATE", "ERROR"}
	entityNames    = [...]string{"CHANNEL", "SESSION"}
)

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

func (d Direction) String() string   { return enumName(directionNames[:], uint8(d)) }
func (l Layer) String() string       { return enumName(layerNames[:], uint8(l)) }
func (c Category) String() string    { return enumName(categoryNames[:], uint8(c)) }
func (s StateEntity) String() string { return enumName(entityNames[:], uint8(s)) }

// FrameEvent records a frame as it crossed the wire. Data holds at most
// MaxFrameDataSize bytes; Size is always the full length.
type FrameEvent struct {
	Size      int    `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`

	// Nil when the header did not parse.
	Transport *uint8 `cbor:"4,keyasint,omitempty"`
	Command   *uint8 `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent records a channel or session transition, such as
// CONNECTING to OPEN.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData records a failure. Context names the operation that
// failed and Pending counts the receivers it was delivered to.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Context string `cbor:"3,keyasint,omitempty"`
	Pending int    `cbor:"4,keyasint,omitempty"`
}
