// Package wire defines the frame format exchanged with the FIDO MAC service.
//
// Every outbound message is prefixed with a fixed 6-byte header:
//
//	┌────────┬────────┬───────────┬─────────┬──────────────┬─────────────┐
//	│  0xF1  │  0xD0  │ transport │ command │ length (BE)  │   payload   │
//	│   1B   │   1B   │    1B     │   1B    │     2B       │  length B   │
//	└────────┴────────┴───────────┴─────────┴──────────────┴─────────────┘
//
// # Transports
//
//   - 0xFF any
//   - 0x01 USB
//   - 0x02 NFC
//   - 0x03 BLE
//
// # Commands
//
//   - 0x00 U2F_APDU
//   - 0x01 U2F_PING
//
// Raw numeric command codes are passed through unvalidated.
//
// Inbound frames are normally handed to callers as raw bytes. Decode is
// provided for callers that want the header fields split out.
package wire
