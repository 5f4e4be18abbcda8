package discovery

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fidomac/fidomac-go/pkg/version"
)

const (
	// ServiceType is the DNS-SD service type of a MAC.
	ServiceType = "_fidomac._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the port advertised when none is given.
	DefaultPort = 8765

	// DefaultPath is the WebSocket path used when the TXT record has none.
	DefaultPath = "/"

	// BrowseTimeout is the default timeout for FindFirst.
	BrowseTimeout = 5 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyTLS     = "tls"
	TXTKeyVersion = "ver"
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrEmptyInstanceName   = errors.New("empty instance name")
	ErrNotFound            = errors.New("service not found")
)

// Service is a discovered MAC.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string

	// From TXT records.
	Path    string
	TLS     bool
	Version string
}

func (s *Service) clone() *Service {
	cp := *s
	cp.Addresses = append([]string(nil), s.Addresses...)
	return &cp
}

// URL returns the WebSocket URL of the service. The first address is
// preferred over the host name.
func (s *Service) URL() string {
	host := strings.TrimSuffix(s.Host, ".")
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}

	scheme := "ws"
	if s.TLS {
		scheme = "wss"
	}

	path := s.Path
	if path == "" {
		path = DefaultPath
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(int(s.Port))),
		Path:   path,
	}
	return u.String()
}

// Compatible reports whether the announced protocol version can be spoken.
// Services that announce no version are assumed compatible.
func (s *Service) Compatible() bool {
	return version.CompatibleString(s.Version)
}

// AdvertiseInfo describes a MAC to announce.
type AdvertiseInfo struct {
	Instance string
	Port     uint16
	Path     string
	TLS      bool
	Version  string
}
