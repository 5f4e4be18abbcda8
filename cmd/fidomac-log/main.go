// Command fidomac-log inspects the .flog protocol traces written by fidomac
// and fidomac-mock when they run with -protocol-log.
//
// Usage:
//
//	fidomac-log view   [selection] <file.flog>
//	fidomac-log filter [selection] -o <out.flog> <file.flog>
//	fidomac-log export [-format jsonl|csv] [-o <out>] <file.flog>
//	fidomac-log stats  <file.flog>
//
// Selection flags, shared by view and filter:
//
//	-conn      connection ID
//	-target    MAC URL
//	-since     RFC 3339 time, inclusive
//	-until     RFC 3339 time, exclusive
//	-layer     channel, frame or session
//	-direction in or out
//	-category  message, state or error
//
// Examples:
//
//	fidomac-log view -layer frame -direction out session.flog
//	fidomac-log filter -conn 4f1c2a90-... -o one.flog session.flog
//	fidomac-log export -format csv -o session.csv session.flog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fidomac/fidomac-go/cmd/fidomac-log/commands"
)

type subcommand struct {
	args    string
	summary string
	run     func(fs *flag.FlagSet, args []string) error
}

var subcommands = map[string]subcommand{
	"view":   {"[selection] <file.flog>", "print one line per event", runView},
	"filter": {"[selection] -o <out.flog> <file.flog>", "copy selected events to a new file", runFilter},
	"export": {"[-format jsonl|csv] [-o <out>] <file.flog>", "convert events to JSON lines or CSV", runExport},
	"stats":  {"<file.flog>", "summarize events per layer, command and connection", runStats},
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
		printUsage(os.Stderr)
		return 2
	}

	name := args[0]
	cmd, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "fidomac-log: unknown command %q\n", name)
		printUsage(os.Stderr)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: fidomac-log %s %s\n\n%s.\n\n", name, cmd.args, cmd.summary)
		fs.PrintDefaults()
	}

	switch err := cmd.run(fs, args[1:]); {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	default:
		fmt.Fprintf(os.Stderr, "fidomac-log %s: %v\n", name, err)
		return 1
	}
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: fidomac-log <command> [flags] <file.flog>")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-7s %s\n", name, subcommands[name].summary)
	}
}

func selectionFlags(fs *flag.FlagSet) *commands.Selection {
	var sel commands.Selection
	fs.StringVar(&sel.ConnID, "conn", "", "connection ID")
	fs.StringVar(&sel.Target, "target", "", "MAC URL")
	fs.StringVar(&sel.Since, "since", "", "first time to include (RFC 3339)")
	fs.StringVar(&sel.Until, "until", "", "first time to exclude (RFC 3339)")
	fs.StringVar(&sel.Layer, "layer", "", "channel, frame or session")
	fs.StringVar(&sel.Direction, "direction", "", "in or out")
	fs.StringVar(&sel.Category, "category", "", "message, state or error")
	return &sel
}

// parse parses args and returns the single log file operand.
func parse(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func runView(fs *flag.FlagSet, args []string) error {
	sel := selectionFlags(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	return commands.View(path, *sel, os.Stdout)
}

func runFilter(fs *flag.FlagSet, args []string) error {
	sel := selectionFlags(fs)
	out := fs.String("o", "", "output .flog file")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return errUsage
	}

	n, err := commands.Filter(path, *out, *sel)
	if err != nil {
		return err
	}
	fmt.Printf("%d events written to %s\n", n, *out)
	return nil
}

func runExport(fs *flag.FlagSet, args []string) error {
	format := fs.String("format", commands.FormatJSONL, "jsonl or csv")
	out := fs.String("o", "", "output file (default stdout)")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return commands.Export(path, *format, w)
}

func runStats(fs *flag.FlagSet, args []string) error {
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	stats, err := commands.Collect(path)
	if err != nil {
		return err
	}
	return stats.Write(os.Stdout)
}
