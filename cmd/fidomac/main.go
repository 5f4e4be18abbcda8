// Command fidomac is a command-line client for a local FIDO MAC service.
//
// It connects to the service over a binary WebSocket, frames U2F_PING and
// U2F_APDU messages and prints the raw responses.
//
// Usage:
//
//	fidomac [flags] ping <text>
//	fidomac [flags] apdu <hex>
//	fidomac [flags] -interactive
//
// Flags:
//
//	-config string        Configuration file path (.yaml, .yml or .toml)
//	-url string           Service URL (default "ws://127.0.0.1:8765/")
//	-transport string     Transport: any, usb, nfc, ble (default "any")
//	-discover             Find the service with mDNS instead of -url
//	-interface string     Network interface for discovery
//	-keepalive            Enable WebSocket ping/pong liveness checks
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this file (.flog)
//	-interactive          Enable interactive command mode
//	-timeout duration     Timeout for connecting and for each response (default 10s)
//
// Examples:
//
//	# Ping the service over USB
//	fidomac -transport usb ping hello
//
//	# Send a SELECT APDU to a discovered service and record the session
//	fidomac -discover -protocol-log session.flog apdu 00A4040008A000000647
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fidomac/fidomac-go/cmd/fidomac/interactive"
	"github.com/fidomac/fidomac-go/internal/config"
	"github.com/fidomac/fidomac-go/pkg/apdu"
	"github.com/fidomac/fidomac-go/pkg/discovery"
	plog "github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/session"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Flags holds the command-line flags.
type Flags struct {
	ConfigFile  string
	URL         string
	Transport   string
	Discover    bool
	Interface   string
	KeepAlive   bool
	LogLevel    string
	ProtocolLog string
	Interactive bool
	Timeout     time.Duration
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (.yaml, .yml or .toml)")
	flag.StringVar(&flags.URL, "url", config.DefaultURL, "Service URL")
	flag.StringVar(&flags.Transport, "transport", wire.DefaultTransport, "Transport: any, usb, nfc, ble")
	flag.BoolVar(&flags.Discover, "discover", false, "Find the service with mDNS instead of -url")
	flag.StringVar(&flags.Interface, "interface", "", "Network interface for discovery")
	flag.BoolVar(&flags.KeepAlive, "keepalive", false, "Enable WebSocket ping/pong liveness checks")
	flag.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to this file (.flog)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
	flag.DurationVar(&flags.Timeout, "timeout", 10*time.Second, "Timeout for connecting and for each response")
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func run(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 2
	}
	setupLogging(cfg.LogLevel)

	if !flags.Interactive && len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fidomac [flags] ping <text> | apdu <hex> | -interactive")
		flag.PrintDefaults()
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return execute(ctx, cancel, cfg, args)
}

// execute connects and runs the command or shell. Every exit path returns
// through the deferred closes, so the protocol log is complete on failure.
func execute(ctx context.Context, cancel context.CancelFunc, cfg config.Config, args []string) int {
	logger, closeLogger, err := protocolLogger(cfg)
	if err != nil {
		log.Printf("Failed to open protocol log: %v", err)
		return 1
	}
	defer closeLogger()

	target := cfg.URL
	if cfg.Discover {
		target, err = discover(ctx, cfg)
		if err != nil {
			log.Printf("Discovery failed: %v", err)
			return 1
		}
	}

	sess, err := connect(ctx, target, cfg, logger)
	if err != nil {
		log.Printf("Failed to connect: %v", err)
		return 1
	}
	defer closeSession(sess)

	client := apdu.NewClient(sess)

	if flags.Interactive {
		shell, err := interactive.New(client, cfg.Transport, flags.Timeout)
		if err != nil {
			log.Printf("Failed to create interactive shell: %v", err)
			return 1
		}
		// Route log output through readline so it does not garble the prompt.
		log.SetOutput(shell.Stdout())
		defer log.SetOutput(os.Stderr)
		shell.Run(ctx, cancel)
		return 0
	}

	if err := runCommand(ctx, client, cfg.Transport, args); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

// loadConfig merges the config file with the flags given explicitly.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		var err error
		cfg, err = config.Load(flags.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = flags.URL
		case "transport":
			cfg.Transport = flags.Transport
		case "discover":
			cfg.Discover = flags.Discover
		case "interface":
			cfg.Interface = flags.Interface
		case "keepalive":
			cfg.KeepAlive.Enabled = flags.KeepAlive
		case "log-level":
			cfg.LogLevel = strings.ToLower(flags.LogLevel)
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "timeout":
			cfg.HandshakeTimeout = flags.Timeout
			cfg.DiscoverTimeout = flags.Timeout
		}
	})

	return cfg, cfg.Validate()
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

// protocolLogger builds the protocol event sink: a .flog file when
// configured, plus slog output on stderr at debug level.
func protocolLogger(cfg config.Config) (plog.Logger, func(), error) {
	var loggers []plog.Logger
	closeFn := func() {}

	if cfg.ProtocolLog != "" {
		fl, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
		log.Printf("Protocol log: %s", cfg.ProtocolLog)
	}

	if cfg.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, plog.NewSlogAdapter(slog.New(handler)))
	}

	return plog.NewMultiLogger(loggers...), closeFn, nil
}

func discover(ctx context.Context, cfg config.Config) (string, error) {
	log.Printf("Browsing for %s services...", discovery.ServiceType)

	ctx, cancel := context.WithTimeout(ctx, cfg.DiscoverTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: cfg.Interface})
	svc, err := browser.FindFirst(ctx)
	if err != nil {
		return "", err
	}

	url := svc.URL()
	log.Printf("Found %s at %s", svc.Instance, url)
	return url, nil
}

// connect dials target and waits until the channel is open.
func connect(ctx context.Context, target string, cfg config.Config, logger plog.Logger) (*session.Session, error) {
	sess, err := session.Dial(target, session.Config{
		ProtocolLogger: logger,
		Channel:        cfg.ChannelConfig(),
	})
	if err != nil {
		return nil, err
	}

	ready := make(chan session.ReadyEvent, 1)
	sess.OnReady(func(ev session.ReadyEvent) { ready <- ev })

	timer := time.NewTimer(cfg.HandshakeTimeout + time.Second)
	defer timer.Stop()

	select {
	case ev := <-ready:
		log.Printf("Connected to %s (connection %s)", ev.Target, ev.ConnectionID)
		return sess, nil
	case <-sess.Done():
		return nil, sess.Err()
	case <-timer.C:
		closeSession(sess)
		return nil, fmt.Errorf("timeout connecting to %s", target)
	case <-ctx.Done():
		closeSession(sess)
		return nil, ctx.Err()
	}
}

// closeWait bounds how long closeSession waits for the session to finish.
const closeWait = 2 * time.Second

// closeSession closes sess and waits until its close has been logged.
func closeSession(sess *session.Session) {
	_ = sess.Close()
	select {
	case <-sess.Done():
	case <-time.After(closeWait):
	}
}

// runCommand executes a one-shot ping or apdu command.
func runCommand(ctx context.Context, client *apdu.Client, transport string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	switch strings.ToLower(args[0]) {
	case "ping":
		text := strings.Join(args[1:], " ")
		sent, err := client.Session().Send(wire.Message{Command: wire.CommandNamePing, Payload: text}, transport).Wait(ctx)
		if err != nil {
			return fmt.Errorf("send ping: %w", err)
		}
		printHex("request", sent)

		resp, err := client.Session().ReceiveContext(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		printHex("response", resp)
		return nil

	case "apdu":
		if len(args) < 2 {
			return errors.New("usage: apdu <hex>")
		}
		payload, err := interactive.ParseHex(strings.Join(args[1:], ""))
		if err != nil {
			return err
		}

		frame, err := client.Exchange(ctx, payload, transport)
		if err != nil {
			return fmt.Errorf("exchange: %w", err)
		}
		fmt.Printf("%s %s (%d bytes)\n", frame.Transport, frame.Command, len(frame.Payload))
		printHex("response payload", frame.Payload)
		return nil

	default:
		return fmt.Errorf("unknown command %q (use ping or apdu)", args[0])
	}
}

func printHex(label string, data []byte) {
	interactive.WriteHex(os.Stdout, label, data)
}
