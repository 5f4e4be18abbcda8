package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b []Event
	logger := NewMultiLogger(
		LoggerFunc(func(ev Event) { a = append(a, ev) }),
		nil,
		LoggerFunc(func(ev Event) { b = append(b, ev) }),
	)

	ev := NewFrameEvent("c1", DirectionOut, []byte{0xF1, 0xD0, 0xFF, 0x01, 0x00, 0x00})
	logger.Log(ev)

	assert.Equal(t, []Event{ev}, a)
	assert.Equal(t, []Event{ev}, b)
}

func TestNewMultiLoggerCollapses(t *testing.T) {
	assert.Equal(t, NoopLogger{}, NewMultiLogger())
	assert.Equal(t, NoopLogger{}, NewMultiLogger(nil, NoopLogger{}))

	var n int
	single := LoggerFunc(func(Event) { n++ })
	got := NewMultiLogger(nil, single)
	got.Log(Event{Timestamp: time.Now()})
	assert.Equal(t, 1, n)
	_, isMulti := got.(MultiLogger)
	assert.False(t, isMulti)
}

func TestNewMultiLoggerFlattens(t *testing.T) {
	var order []string
	named := func(name string) Logger {
		return LoggerFunc(func(Event) { order = append(order, name) })
	}

	inner := NewMultiLogger(named("file"), named("slog"))
	outer := NewMultiLogger(inner, named("test"))

	m, ok := outer.(MultiLogger)
	if assert.True(t, ok) {
		assert.Len(t, m, 3)
	}
	outer.Log(Event{})
	assert.Equal(t, []string{"file", "slog", "test"}, order)
}
