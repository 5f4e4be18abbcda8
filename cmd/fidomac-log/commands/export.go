package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// record is the flat, export-friendly form of an event.
type record struct {
	Time      string `json:"time"`
	Conn      string `json:"conn"`
	Direction string `json:"direction,omitempty"`
	Layer     string `json:"layer"`
	Category  string `json:"category"`
	Target    string `json:"target,omitempty"`
	Command   string `json:"command,omitempty"`
	Transport string `json:"transport,omitempty"`
	Size      int    `json:"size,omitempty"`
	Data      string `json:"data,omitempty"`
	State     string `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

var csvHeader = []string{"time", "conn", "direction", "layer", "category", "target", "command", "transport", "size", "state", "error"}

func newRecord(ev log.Event) record {
	r := record{
		Time:     ev.Timestamp.UTC().Format(timeLayout),
		Conn:     ev.ConnectionID,
		Layer:    ev.Layer.String(),
		Category: ev.Category.String(),
		Target:   ev.Target,
	}

	switch {
	case ev.Frame != nil:
		r.Direction = ev.Direction.String()
		r.Size = ev.Frame.Size
		r.Data = fmt.Sprintf("%x", ev.Frame.Data)
		if ev.Frame.Command != nil {
			r.Command = wire.Command(*ev.Frame.Command).String()
		}
		if ev.Frame.Transport != nil {
			r.Transport = wire.Transport(*ev.Frame.Transport).String()
		}
	case ev.StateChange != nil:
		r.State = ev.StateChange.NewState
	case ev.Error != nil:
		r.Error = ev.Error.Message
	}
	return r
}

func (r record) row() []string {
	size := ""
	if r.Size > 0 {
		size = strconv.Itoa(r.Size)
	}
	return []string{r.Time, r.Conn, r.Direction, r.Layer, r.Category, r.Target, r.Command, r.Transport, size, r.State, r.Error}
}

// Export writes every event of path to w as JSON lines or CSV.
func Export(path, format string, w io.Writer) error {
	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		return each(path, Selection{}, func(ev log.Event) error {
			return enc.Encode(newRecord(ev))
		})

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		err := each(path, Selection{}, func(ev log.Event) error {
			return cw.Write(newRecord(ev).row())
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()

	default:
		return fmt.Errorf("unsupported format %q (use %s or %s)", format, FormatJSONL, FormatCSV)
	}
}
