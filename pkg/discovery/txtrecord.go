package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// TXTInfo is the service metadata carried in TXT records.
type TXTInfo struct {
	Path    string
	TLS     bool
	Version string
}

// EncodeTXT creates TXT records for info. Empty optional fields are omitted.
func EncodeTXT(info *AdvertiseInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	path := info.Path
	if path == "" {
		path = DefaultPath
	}
	txt[TXTKeyPath] = path

	if info.TLS {
		txt[TXTKeyTLS] = "1"
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}

	return txt
}

// DecodeTXT parses TXT records. Missing keys take their defaults.
func DecodeTXT(txt TXTRecordMap) (*TXTInfo, error) {
	info := &TXTInfo{
		Path:    DefaultPath,
		Version: txt[TXTKeyVersion],
	}

	if p, ok := txt[TXTKeyPath]; ok && p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		info.Path = p
	}

	if v, ok := txt[TXTKeyTLS]; ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "":
			// A bare "tls" key is a boolean flag.
			info.TLS = true
		case "0", "false", "no":
			info.TLS = false
		default:
			return nil, fmt.Errorf("%w: tls=%q", ErrInvalidTXTRecord, v)
		}
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return ErrEmptyInstanceName
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
