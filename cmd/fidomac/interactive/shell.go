// Package interactive provides the interactive command-line interface
// for the fidomac client.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/fidomac/fidomac-go/pkg/apdu"
	plog "github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/session"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Shell handles interactive mode for fidomac.
type Shell struct {
	client    *apdu.Client
	transport string
	timeout   time.Duration
	rl        *readline.Instance
	out       io.Writer
}

// New creates a new interactive shell.
func New(client *apdu.Client, transport string, timeout time.Duration) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fidomac> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("ping"),
			readline.PcItem("apdu"),
			readline.PcItem("recv"),
			readline.PcItem("flush"),
			readline.PcItem("transport",
				readline.PcItem("any"),
				readline.PcItem("usb"),
				readline.PcItem("nfc"),
				readline.PcItem("ble"),
			),
			readline.PcItem("status"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		client:    client,
		transport: transport,
		timeout:   timeout,
		rl:        rl,
		out:       rl.Stdout(),
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "ping", "p":
		s.cmdPing(ctx, args)

	case "apdu", "a":
		s.cmdAPDU(ctx, args)

	case "recv", "r":
		s.cmdRecv(ctx)

	case "flush":
		s.client.Session().Flush()
		fmt.Fprintln(s.out, "Buffered frames discarded")

	case "transport", "t":
		s.cmdTransport(args)

	case "status":
		s.cmdStatus()

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
fidomac Commands:
  Messages:
    ping [text]            - Send U2F_PING with text payload
    apdu <hex>             - Send U2F_APDU and wait for the response frame
    recv                   - Wait for the next inbound frame

  Session:
    flush                  - Discard buffered inbound frames
    transport [name]       - Show or set the transport (any, usb, nfc, ble)
    status                 - Show session status

  General:
    help                   - Show this help
    quit                   - Exit`)
}

func (s *Shell) cmdPing(ctx context.Context, args []string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text := strings.Join(args, " ")
	sent, err := s.client.Session().Send(wire.Message{Command: wire.CommandNamePing, Payload: text}, s.transport).Wait(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Send failed: %v\n", err)
		return
	}
	WriteHex(s.out, "request", sent)

	resp, err := s.client.Session().ReceiveContext(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Receive failed: %v\n", err)
		return
	}
	WriteHex(s.out, "response", resp)
}

func (s *Shell) cmdAPDU(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: apdu <hex>")
		return
	}

	payload, err := ParseHex(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	frame, err := s.client.Exchange(ctx, payload, s.transport)
	if err != nil {
		fmt.Fprintf(s.out, "Exchange failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", frame.Transport, frame.Command)
	WriteHex(s.out, "response payload", frame.Payload)
}

func (s *Shell) cmdRecv(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Session().ReceiveContext(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Receive failed: %v\n", err)
		return
	}
	WriteHex(s.out, "frame", data)
}

func (s *Shell) cmdTransport(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Transport: %s\n", s.transport)
		return
	}
	if _, err := wire.ParseTransport(args[0]); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.transport = args[0]
	fmt.Fprintf(s.out, "Transport set to %s\n", s.transport)
}

func (s *Shell) cmdStatus() {
	sess := s.client.Session()

	fmt.Fprintln(s.out, "\nSession Status:")
	fmt.Fprintln(s.out, "-------------------------------------------")
	fmt.Fprintf(s.out, "  Connection: %s\n", sess.ConnectionID())
	fmt.Fprintf(s.out, "  Target:     %s\n", sess.Target())
	fmt.Fprintf(s.out, "  State:      %s\n", sess.State())
	fmt.Fprintf(s.out, "  Transport:  %s\n", s.transport)
	fmt.Fprintf(s.out, "  Buffered:   %d\n", sess.Buffered())
	fmt.Fprintf(s.out, "  Waiting:    %d\n", sess.Waiting())
	if sess.State() == session.StateClosed {
		fmt.Fprintf(s.out, "  Closed:     %v\n", sess.Err())
	}
}

// ParseHex decodes a hex string, ignoring spaces, colons and an optional 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// WriteHex writes a labelled hex dump of data to w.
func WriteHex(w io.Writer, label string, data []byte) {
	fmt.Fprintf(w, "%s (%d bytes):\n", label, len(data))
	for _, row := range plog.HexDump(data) {
		fmt.Fprintf(w, "  %s\n", row)
	}
}
