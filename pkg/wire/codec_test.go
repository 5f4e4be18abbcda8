package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePingLiteral(t *testing.T) {
	got, err := Encode(Message{Command: "U2F_PING", Payload: "hi"}, "usb")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0xD0, 0x01, 0x01, 0x00, 0x02, 0x68, 0x69}, got)
}

func TestEncodeTransports(t *testing.T) {
	tests := []struct {
		transport string
		want      byte
	}{
		{"any", 0xFF},
		{"ANY", 0xFF},
		{"usb", 0x01},
		{"USB-HID", 0x01},
		{"nfc", 0x02},
		{"nfcx", 0x02},
		{"ble", 0x03},
		{"Bluetooth BLE", 0x03},
		// "any" is checked first.
		{"usb-or-any", 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			got, err := Encode(NewPing(nil), tt.transport)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[2])
		})
	}
}

func TestEncodeUnknownTransport(t *testing.T) {
	_, err := Encode(Message{Command: "U2F_PING", Payload: "x"}, "lte")
	assert.ErrorIs(t, err, ErrUnknownTransport)

	_, err = Encode(Message{Command: "U2F_PING", Payload: "x"}, "")
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestEncodeInvalidPayload(t *testing.T) {
	payloads := []any{42, true, 3.14, struct{ A int }{1}, map[string]int{}, nil, []int{1}}
	for _, p := range payloads {
		_, err := Encode(Message{Command: "U2F_PING", Payload: p}, "any")
		assert.ErrorIs(t, err, ErrInvalidPayloadType, "payload %T", p)
	}
}

func TestEncodeCommands(t *testing.T) {
	tests := []struct {
		name    string
		command any
		want    byte
		wantErr error
	}{
		{name: "apdu name", command: "U2F_APDU", want: 0x00},
		{name: "ping name", command: "U2F_PING", want: 0x01},
		{name: "typed", command: CommandPing, want: 0x01},
		{name: "raw int", command: 0x83, want: 0x83},
		{name: "raw byte", command: byte(0x42), want: 0x42},
		{name: "raw wraps", command: 0x1FF, want: 0xFF},
		{name: "lower case name", command: "u2f_ping", wantErr: ErrUnknownCommand},
		{name: "unknown name", command: "U2F_WINK", wantErr: ErrUnknownCommand},
		{name: "float", command: 1.0, wantErr: ErrUnknownCommand},
		{name: "nil", command: nil, wantErr: ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(Message{Command: tt.command, Payload: []byte{}}, "any")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[3])
		})
	}
}

func TestEncodeErrorPrecedence(t *testing.T) {
	// Payload type is checked before command and transport.
	_, err := Encode(Message{Command: "nope", Payload: 1}, "lte")
	assert.ErrorIs(t, err, ErrInvalidPayloadType)

	// Command before transport.
	_, err = Encode(Message{Command: "nope", Payload: "x"}, "lte")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestEncodeBinaryPayload(t *testing.T) {
	payload := []byte{0x00, 0xA4, 0x04, 0x00, 0x08}
	got, err := Encode(NewAPDU(payload), DefaultTransport)
	require.NoError(t, err)

	assert.Len(t, got, FrameSize(len(payload)))
	assert.Equal(t, []byte{0xF1, 0xD0, 0xFF, 0x00, 0x00, 0x05}, got[:HeaderSize])
	assert.Equal(t, payload, got[HeaderSize:])

	// The frame must not alias the caller's buffer.
	payload[0] = 0xEE
	assert.Equal(t, byte(0x00), got[HeaderSize])
}

func TestEncodeTextTruncatesCodePoints(t *testing.T) {
	// U+0101 keeps its low byte 0x01; U+00E9 is a single character.
	got, err := Encode(Message{Command: CommandPing, Payload: "aāé"}, "any")
	require.NoError(t, err)

	assert.Equal(t, []byte{0x00, 0x03}, got[4:6])
	assert.Equal(t, []byte{'a', 0x01, 0xE9}, got[HeaderSize:])
}

func TestEncodeTextInvalidUTF8(t *testing.T) {
	got, err := Encode(Message{Command: CommandPing, Payload: "\x80\xff"}, "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0xD0, 0xFF, 0x01, 0x00, 0x02, 0x80, 0xFF}, got)

	// Raw bytes mixed with valid code points.
	got, err = Encode(Message{Command: CommandPing, Payload: "a\x80ā"}, "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x03}, got[4:6])
	assert.Equal(t, []byte{'a', 0x80, 0x01}, got[HeaderSize:])
}

func TestEncodeTextSupplementaryCodePoint(t *testing.T) {
	// U+1F600 is one code point and so one byte.
	got, err := Encode(Message{Command: CommandPing, Payload: "😀"}, "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, got[4:6])
	assert.Equal(t, []byte{0x00}, got[HeaderSize:])
}

func TestEncodeLengthBigEndian(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5A}, 0x0102)
	got, err := Encode(NewPing(payload), "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got[4:6])
}

func TestEncodeMaxPayload(t *testing.T) {
	got, err := Encode(NewPing(make([]byte, MaxPayloadSize)), "any")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF}, got[4:6])

	_, err = Encode(NewPing(make([]byte, MaxPayloadSize+1)), "any")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = Encode(Message{Command: CommandPing, Payload: strings.Repeat("x", MaxPayloadSize+1)}, "any")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecode(t *testing.T) {
	frame, err := Encode(NewAPDU([]byte{1, 2, 3}), "nfc")
	require.NoError(t, err)

	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TransportNFC, got.Transport)
	assert.Equal(t, CommandAPDU, got.Command)
	assert.Equal(t, []byte{1, 2, 3}, got.Payload)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	frame := []byte{0xF1, 0xD0, 0x01, 0x01, 0x00, 0x01, 0xAA, 0xBB}
	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, got.Payload)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, ErrFrameTruncated},
		{"short header", []byte{0xF1, 0xD0, 0x01}, ErrFrameTruncated},
		{"bad magic", []byte{0xF1, 0xD1, 0x01, 0x01, 0x00, 0x00}, ErrBadMagic},
		{"short payload", []byte{0xF1, 0xD0, 0x01, 0x01, 0x00, 0x03, 0x01}, ErrFrameTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseTransportAndCommand(t *testing.T) {
	tr, err := ParseTransport("Ble")
	require.NoError(t, err)
	assert.Equal(t, TransportBLE, tr)
	assert.Equal(t, "BLE", tr.String())
	assert.Equal(t, "TRANSPORT(0x07)", Transport(7).String())

	cmd, err := ParseCommand("U2F_APDU")
	require.NoError(t, err)
	assert.Equal(t, CommandAPDU, cmd)
	assert.Equal(t, "U2F_APDU", cmd.String())
	assert.Equal(t, "CMD(0x83)", Command(0x83).String())
}

func TestEncodeFrame(t *testing.T) {
	got, err := EncodeFrame(Frame{Transport: TransportBLE, Command: Command(0x83), Payload: []byte{0x90, 0x00}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0xD0, 0x03, 0x83, 0x00, 0x02, 0x90, 0x00}, got)

	back, err := Decode(got)
	require.NoError(t, err)
	assert.Equal(t, Command(0x83), back.Command)

	_, err = EncodeFrame(Frame{Payload: make([]byte, MaxPayloadSize+1)})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}
