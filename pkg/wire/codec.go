package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Framing constants.
const (
	// Magic1 and Magic2 open every frame.
	Magic1 = 0xF1
	Magic2 = 0xD0

	// HeaderSize is the size of the fixed frame header in bytes.
	HeaderSize = 6

	// MaxPayloadSize is the largest payload the 16-bit length field can describe.
	MaxPayloadSize = 0xFFFF

	// DefaultTransport is the transport used when the caller has no preference.
	DefaultTransport = "any"
)

// Codec errors.
var (
	// ErrInvalidPayloadType indicates a payload that is neither a string nor a []byte.
	ErrInvalidPayloadType = errors.New("invalid payload type")

	// ErrUnknownCommand indicates an unrecognized command name or command type.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownTransport indicates a transport string matching no known transport.
	ErrUnknownTransport = errors.New("unknown transport")

	// ErrPayloadTooLarge indicates a payload longer than MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrFrameTruncated indicates a frame shorter than its header or declared length.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrBadMagic indicates a frame that does not start with 0xF1 0xD0.
	ErrBadMagic = errors.New("bad frame magic")
)

// transportPatterns is checked in order; the first substring match wins.
var transportPatterns = []struct {
	pattern   string
	transport Transport
}{
	{"any", TransportAny},
	{"usb", TransportUSB},
	{"nfc", TransportNFC},
	{"ble", TransportBLE},
}

// ParseTransport maps a transport string to its wire code. The match is a
// case-insensitive substring match, so "NFC-reader" selects NFC.
func ParseTransport(s string) (Transport, error) {
	lower := strings.ToLower(s)
	for _, p := range transportPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.transport, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransport, s)
}

// ParseCommand maps a command name to its wire code. Names are case-sensitive.
func ParseCommand(name string) (Command, error) {
	switch name {
	case CommandNameAPDU:
		return CommandAPDU, nil
	case CommandNamePing:
		return CommandPing, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// commandByte resolves the Message.Command field.
func commandByte(cmd any) (byte, error) {
	switch c := cmd.(type) {
	case Command:
		return byte(c), nil
	case string:
		parsed, err := ParseCommand(c)
		return byte(parsed), err
	case byte:
		return c, nil
	case int:
		return byte(c), nil
	case int8:
		return byte(c), nil
	case int16:
		return byte(c), nil
	case int32:
		return byte(c), nil
	case int64:
		return byte(c), nil
	case uint:
		return byte(c), nil
	case uint16:
		return byte(c), nil
	case uint32:
		return byte(c), nil
	case uint64:
		return byte(c), nil
	default:
		return 0, fmt.Errorf("%w: unsupported command type %T", ErrUnknownCommand, cmd)
	}
}

// textBytes keeps the low byte of each code point in s. Bytes that are not
// valid UTF-8 are copied through unchanged.
func textBytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, s[i])
		} else {
			out = append(out, byte(r))
		}
		i += size
	}
	return out
}

// payloadBytes returns the encoded payload.
func payloadBytes(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case string:
		return textBytes(p), nil
	case []byte:
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidPayloadType, payload)
	}
}

// Encode serializes msg into a frame addressed to transport.
func Encode(msg Message, transport string) ([]byte, error) {
	payload, err := payloadBytes(msg.Payload)
	if err != nil {
		return nil, err
	}
	n := len(payload)

	cmd, err := commandByte(msg.Command)
	if err != nil {
		return nil, err
	}

	tr, err := ParseTransport(transport)
	if err != nil {
		return nil, err
	}

	if n > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, MaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+n)
	putHeader(buf, tr, Command(cmd), n)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// EncodeFrame serializes a frame whose header fields are already resolved.
func EncodeFrame(f Frame) ([]byte, error) {
	n := len(f.Payload)
	if n > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, MaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+n)
	putHeader(buf, f.Transport, f.Command, n)
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

func putHeader(buf []byte, tr Transport, cmd Command, n int) {
	buf[0] = Magic1
	buf[1] = Magic2
	buf[2] = byte(tr)
	buf[3] = byte(cmd)
	binary.BigEndian.PutUint16(buf[4:6], uint16(n))
}

// Decode splits a frame into its header fields and payload. The returned
// payload aliases frame. Bytes beyond the declared length are ignored.
func Decode(frame []byte) (Frame, error) {
	if len(frame) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d header bytes", ErrFrameTruncated, len(frame))
	}
	if frame[0] != Magic1 || frame[1] != Magic2 {
		return Frame{}, fmt.Errorf("%w: %02X %02X", ErrBadMagic, frame[0], frame[1])
	}

	n := int(binary.BigEndian.Uint16(frame[4:6]))
	if len(frame)-HeaderSize < n {
		return Frame{}, fmt.Errorf("%w: payload %d < %d", ErrFrameTruncated, len(frame)-HeaderSize, n)
	}

	return Frame{
		Transport: Transport(frame[2]),
		Command:   Command(frame[3]),
		Payload:   frame[HeaderSize : HeaderSize+n],
	}, nil
}

// FrameSize returns the total frame size for a payload of the given length.
func FrameSize(payloadLen int) int {
	return HeaderSize + payloadLen
}
