// Package version provides protocol version parsing, comparison, and
// WebSocket subprotocol helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// subprotocolPrefix starts every subprotocol token, e.g. "fidomac.v1".
const subprotocolPrefix = "fidomac.v"

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns Current parsed.
func MustCurrent() ProtocolVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// CompatibleString reports whether a peer-announced version string can be
// spoken. An empty string means the peer did not say and is accepted.
func CompatibleString(s string) bool {
	if s == "" {
		return true
	}
	v, err := Parse(s)
	if err != nil {
		// A bare major ("1") is common in TXT records.
		major, perr := strconv.ParseUint(s, 10, 16)
		if perr != nil {
			return false
		}
		v = ProtocolVersion{Major: uint16(major)}
	}
	return MustCurrent().Compatible(v)
}

// Subprotocol returns the WebSocket subprotocol token for a major version.
func Subprotocol(major uint16) string {
	return subprotocolPrefix + strconv.FormatUint(uint64(major), 10)
}

// MajorFromSubprotocol extracts the major version from a subprotocol token.
func MajorFromSubprotocol(token string) (uint16, error) {
	if !strings.HasPrefix(token, subprotocolPrefix) {
		return 0, fmt.Errorf("not a fidomac subprotocol: %q", token)
	}

	suffix := token[len(subprotocolPrefix):]
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in subprotocol: %q", token)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in subprotocol %q: %w", token, err)
	}

	return uint16(major), nil
}

// SupportedSubprotocols returns the subprotocol tokens for all supported
// major versions. Currently only major version 1.
func SupportedSubprotocols() []string {
	return []string{Subprotocol(MustCurrent().Major)}
}
