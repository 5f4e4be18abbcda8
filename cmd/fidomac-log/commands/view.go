package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// timeLayout is the UTC layout used by view and export.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// View prints one line per selected event.
func View(path string, sel Selection, w io.Writer) error {
	return each(path, sel, func(ev log.Event) error {
		_, err := fmt.Fprintln(w, formatLine(ev))
		return err
	})
}

// formatLine renders ev as
//
//	<time> <conn> <dir> <layer> <summary>
//
// where dir is blank for events that are not frames.
func formatLine(ev log.Event) string {
	dir := ""
	if ev.Frame != nil {
		dir = ev.Direction.String()
	}
	return fmt.Sprintf("%s %-8s %-3s %-7s %s",
		ev.Timestamp.UTC().Format(timeLayout), shortID(ev.ConnectionID), dir, ev.Layer, summary(ev))
}

func summary(ev log.Event) string {
	var sb strings.Builder

	switch {
	case ev.Frame != nil:
		f := ev.Frame
		if f.Command != nil && f.Transport != nil {
			fmt.Fprintf(&sb, "%s %s ", wire.Command(*f.Command), wire.Transport(*f.Transport))
		} else {
			sb.WriteString("malformed ")
		}
		fmt.Fprintf(&sb, "%dB %s", f.Size, hex.EncodeToString(f.Data))
		if f.Truncated {
			sb.WriteString("...")
		}
	case ev.StateChange != nil:
		sc := ev.StateChange
		old := sc.OldState
		if old == "" {
			old = "-"
		}
		fmt.Fprintf(&sb, "%s %s -> %s", sc.Entity, old, sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", sc.Reason)
		}
	case ev.Error != nil:
		e := ev.Error
		sb.WriteString("error ")
		if e.Context != "" {
			sb.WriteString(e.Context + ": ")
		}
		sb.WriteString(e.Message)
		if e.Pending > 0 {
			fmt.Fprintf(&sb, " [%d pending]", e.Pending)
		}
	default:
		sb.WriteString(ev.Category.String())
	}

	if ev.Target != "" {
		sb.WriteString(" @ " + ev.Target)
	}
	return sb.String()
}

// shortID keeps the first UUID group of a connection ID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 && i <= 8 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
