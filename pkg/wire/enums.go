package wire

import "fmt"

// Transport selects the authenticator transport the MAC service should use.
type Transport uint8

const (
	// TransportUSB routes the message to a USB HID authenticator.
	TransportUSB Transport = 0x01

	// TransportNFC routes the message to an NFC authenticator.
	TransportNFC Transport = 0x02

	// TransportBLE routes the message to a Bluetooth LE authenticator.
	TransportBLE Transport = 0x03

	// TransportAny lets the service pick any available authenticator.
	TransportAny Transport = 0xFF
)

// String returns the transport name.
func (t Transport) String() string {
	switch t {
	case TransportUSB:
		return "USB"
	case TransportNFC:
		return "NFC"
	case TransportBLE:
		return "BLE"
	case TransportAny:
		return "ANY"
	default:
		return fmt.Sprintf("TRANSPORT(0x%02X)", uint8(t))
	}
}

// Command identifies the U2F command carried by a frame.
type Command uint8

const (
	// CommandAPDU carries an ISO 7816-4 APDU.
	CommandAPDU Command = 0x00

	// CommandPing asks the authenticator to echo the payload.
	CommandPing Command = 0x01
)

// Command names accepted by ParseCommand.
const (
	CommandNameAPDU = "U2F_APDU"
	CommandNamePing = "U2F_PING"
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandAPDU:
		return CommandNameAPDU
	case CommandPing:
		return CommandNamePing
	default:
		return fmt.Sprintf("CMD(0x%02X)", uint8(c))
	}
}
