// Command fidomac-mock runs a mock FIDO MAC service for local testing.
//
// It accepts WebSocket connections, echoes U2F_PING frames and answers every
// U2F_APDU frame with a fixed status word (9000 unless -status is given).
//
// Usage:
//
//	fidomac-mock [flags]
//
// Flags:
//
//	-addr string          Listen address (default "127.0.0.1:8765")
//	-path string          WebSocket endpoint path (default "/")
//	-status string        Hex status word returned for APDUs (default "9000")
//	-advertise            Announce the service with mDNS
//	-instance string      mDNS instance name (default "fidomac-mock")
//	-interface string     Network interface for mDNS
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this file (.flog)
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fidomac/fidomac-go/cmd/fidomac/interactive"
	"github.com/fidomac/fidomac-go/internal/mockmac"
	"github.com/fidomac/fidomac-go/pkg/discovery"
	plog "github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/version"
)

// Flags holds the command-line flags.
type Flags struct {
	Addr        string
	Path        string
	Status      string
	Advertise   bool
	Instance    string
	Interface   string
	LogLevel    string
	ProtocolLog string
}

var flags Flags

func init() {
	flag.StringVar(&flags.Addr, "addr", "127.0.0.1:8765", "Listen address")
	flag.StringVar(&flags.Path, "path", mockmac.DefaultPath, "WebSocket endpoint path")
	flag.StringVar(&flags.Status, "status", "9000", "Hex status word returned for APDUs")
	flag.BoolVar(&flags.Advertise, "advertise", false, "Announce the service with mDNS")
	flag.StringVar(&flags.Instance, "instance", "fidomac-mock", "mDNS instance name")
	flag.StringVar(&flags.Interface, "interface", "", "Network interface for mDNS")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to this file (.flog)")
}

func main() {
	flag.Parse()
	setupLogging(flags.LogLevel)
	os.Exit(run())
}

// run serves until SIGINT or SIGTERM. Deferred cleanup runs before the
// exit code is returned.
func run() int {
	status, err := interactive.ParseHex(flags.Status)
	if err != nil {
		log.Printf("Invalid -status: %v", err)
		return 2
	}

	var loggers []plog.Logger
	if flags.ProtocolLog != "" {
		fl, err := plog.NewFileLogger(flags.ProtocolLog)
		if err != nil {
			log.Printf("Failed to open protocol log: %v", err)
			return 1
		}
		defer fl.Close()
		loggers = append(loggers, fl)
		log.Printf("Protocol log: %s", flags.ProtocolLog)
	}
	if flags.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, plog.NewSlogAdapter(slog.New(handler)))
	}

	server := mockmac.NewServer(mockmac.ServerConfig{
		Address:   flags.Addr,
		Path:      flags.Path,
		Responder: func([]byte) []byte { return status },
		Logger:    plog.NewMultiLogger(loggers...),
		OnConnect: func(c *mockmac.Conn) {
			log.Printf("Client connected: %s (%s)", c.RemoteAddr, c.ID)
		},
		OnDisconnect: func(c *mockmac.Conn) {
			log.Printf("Client disconnected: %s (%s)", c.RemoteAddr, c.ID)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		log.Printf("Failed to start server: %v", err)
		return 1
	}
	log.Printf("Mock MAC listening on %s", server.URL())

	if flags.Advertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: flags.Interface,
			TTL:       discovery.DefaultAdvertiserConfig().TTL,
		})
		err := adv.Advertise(&discovery.AdvertiseInfo{
			Instance: flags.Instance,
			Port:     server.Port(),
			Path:     flags.Path,
			Version:  version.Current,
		})
		if err != nil {
			log.Printf("Warning: mDNS advertisement failed: %v", err)
		} else {
			log.Printf("Advertising %s as %q", discovery.ServiceType, flags.Instance)
			defer adv.Stop()
		}
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	if err := server.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
		return 1
	}
	return 0
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}
