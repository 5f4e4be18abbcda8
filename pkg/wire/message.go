package wire

// Message is a logical message before framing.
type Message struct {
	// Command is one of:
	//   - a Command value
	//   - a command name ("U2F_APDU", "U2F_PING"), matched case-sensitively
	//   - any Go integer, passed through as a raw code (low 8 bits)
	Command any

	// Payload is either a string or a []byte. Strings are converted one
	// byte per character, keeping the low 8 bits of each code point.
	Payload any
}

// Frame is the decoded view of a frame.
type Frame struct {
	Transport Transport
	Command   Command
	Payload   []byte
}

// NewPing builds a U2F_PING message.
func NewPing(payload []byte) Message {
	return Message{Command: CommandPing, Payload: payload}
}

// NewAPDU builds a U2F_APDU message.
func NewAPDU(apdu []byte) Message {
	return Message{Command: CommandAPDU, Payload: apdu}
}
