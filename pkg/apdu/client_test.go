package apdu

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fidomac/fidomac-go/pkg/channel"
	"github.com/fidomac/fidomac-go/pkg/channel/mocks"
	"github.com/fidomac/fidomac-go/pkg/session"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

func newTestClient(t *testing.T) (*Client, *mocks.MockChannel, channel.Handler) {
	t.Helper()

	ch := mocks.NewMockChannel(t)
	var h channel.Handler
	ch.EXPECT().Start(mock.Anything).Run(func(handler channel.Handler) {
		h = handler
	}).Once()

	c := NewClient(session.New(ch, session.Config{}))
	h.OnOpen()
	return c, ch, h
}

func TestSendAPDUForwardsResult(t *testing.T) {
	c, ch, _ := newTestClient(t)

	want := []byte{0xF1, 0xD0, 0x02, 0x00, 0x00, 0x03, 0x00, 0xA4, 0x04}
	ch.EXPECT().Send(want).Return(nil).Once()

	got, err := c.SendAPDU([]byte{0x00, 0xA4, 0x04}, "nfc").Result()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPingForwardsResult(t *testing.T) {
	c, ch, _ := newTestClient(t)

	ch.EXPECT().Send(mock.Anything).Return(nil).Once()

	got, err := c.Ping([]byte("hi"), "usb").Result()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0xD0, 0x01, 0x01, 0x00, 0x02, 'h', 'i'}, got)
}

func TestSendAPDUForwardsErrors(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.SendAPDU([]byte{1}, "wifi").Result()
	assert.ErrorIs(t, err, wire.ErrUnknownTransport)
}

func TestReceiveAPDURaw(t *testing.T) {
	c, _, h := newTestClient(t)

	f := c.ReceiveAPDU()
	h.OnMessage([]byte{0x90, 0x00})

	got, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, got)
}

func TestReceiveFrameDecodes(t *testing.T) {
	c, _, h := newTestClient(t)
	h.OnMessage([]byte{0xF1, 0xD0, 0x03, 0x00, 0x00, 0x02, 0x90, 0x00})

	frame, err := c.ReceiveFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wire.TransportBLE, frame.Transport)
	assert.Equal(t, wire.CommandAPDU, frame.Command)
	assert.Equal(t, []byte{0x90, 0x00}, frame.Payload)
}

func TestReceiveFrameRejectsGarbage(t *testing.T) {
	c, _, h := newTestClient(t)
	h.OnMessage([]byte{0x90, 0x00})

	_, err := c.ReceiveFrame(context.Background())
	assert.ErrorIs(t, err, wire.ErrFrameTruncated)
}

func TestExchange(t *testing.T) {
	c, ch, h := newTestClient(t)

	ch.EXPECT().Send(mock.Anything).Run(func(data []byte) {
		resp, err := wire.Encode(wire.NewAPDU([]byte{0x90, 0x00}), "any")
		require.NoError(t, err)
		go h.OnMessage(resp)
	}).Return(nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frame, err := c.Exchange(ctx, []byte{0x00, 0x01}, "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, frame.Payload)
}
