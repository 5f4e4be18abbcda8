package commands

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/fidomac/fidomac-go/pkg/log"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Stats summarizes a log file.
type Stats struct {
	Events     int
	Errors     int
	First      time.Time
	Last       time.Time
	ByLayer    map[log.Layer]int
	ByCategory map[log.Category]int
	Frames     map[log.Direction]int
	ByCommand  map[wire.Command]int
	Conns      map[string]*ConnStats
}

// ConnStats summarizes one connection.
type ConnStats struct {
	ID       string
	Target   string
	First    time.Time
	Last     time.Time
	Events   int
	BytesIn  int
	BytesOut int
}

// Collect reads path and returns its statistics.
func Collect(path string) (*Stats, error) {
	s := &Stats{
		ByLayer:    map[log.Layer]int{},
		ByCategory: map[log.Category]int{},
		Frames:     map[log.Direction]int{},
		ByCommand:  map[wire.Command]int{},
		Conns:      map[string]*ConnStats{},
	}
	err := each(path, Selection{}, func(ev log.Event) error {
		s.add(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stats) add(ev log.Event) {
	s.Events++
	s.ByLayer[ev.Layer]++
	s.ByCategory[ev.Category]++
	if s.First.IsZero() || ev.Timestamp.Before(s.First) {
		s.First = ev.Timestamp
	}
	if ev.Timestamp.After(s.Last) {
		s.Last = ev.Timestamp
	}

	c := s.Conns[ev.ConnectionID]
	if c == nil {
		c = &ConnStats{ID: ev.ConnectionID, First: ev.Timestamp}
		s.Conns[ev.ConnectionID] = c
	}
	c.Events++
	if ev.Timestamp.After(c.Last) {
		c.Last = ev.Timestamp
	}
	if c.Target == "" {
		c.Target = ev.Target
	}

	switch {
	case ev.Frame != nil:
		s.Frames[ev.Direction]++
		if ev.Frame.Command != nil {
			s.ByCommand[wire.Command(*ev.Frame.Command)]++
		}
		if ev.Direction == log.DirectionOut {
			c.BytesOut += ev.Frame.Size
		} else {
			c.BytesIn += ev.Frame.Size
		}
	case ev.Error != nil:
		s.Errors++
	}
}

// Write prints the statistics as aligned columns.
func (s *Stats) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "events\t%d\n", s.Events)
	if s.Events > 0 {
		fmt.Fprintf(tw, "span\t%s .. %s (%s)\n",
			s.First.UTC().Format(time.RFC3339), s.Last.UTC().Format(time.RFC3339), s.Last.Sub(s.First).Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "errors\t%d\n", s.Errors)

	for _, l := range []log.Layer{log.LayerChannel, log.LayerFrame, log.LayerSession} {
		if n := s.ByLayer[l]; n > 0 {
			fmt.Fprintf(tw, "layer %s\t%d\n", l, n)
		}
	}
	for _, d := range []log.Direction{log.DirectionOut, log.DirectionIn} {
		if n := s.Frames[d]; n > 0 {
			fmt.Fprintf(tw, "frames %s\t%d\n", d, n)
		}
	}
	cmds := make([]wire.Command, 0, len(s.ByCommand))
	for cmd := range s.ByCommand {
		cmds = append(cmds, cmd)
	}
	slices.Sort(cmds)
	for _, cmd := range cmds {
		fmt.Fprintf(tw, "command %s\t%d\n", cmd, s.ByCommand[cmd])
	}

	conns := make([]*ConnStats, 0, len(s.Conns))
	for _, c := range s.Conns {
		conns = append(conns, c)
	}
	slices.SortFunc(conns, func(a, b *ConnStats) int { return a.First.Compare(b.First) })

	fmt.Fprintf(tw, "connections\t%d\n", len(conns))
	for _, c := range conns {
		fmt.Fprintf(tw, "  %s\t%d events in %s, %d B out, %d B in\t%s\n",
			shortID(c.ID), c.Events, c.Last.Sub(c.First).Round(time.Millisecond), c.BytesOut, c.BytesIn, c.Target)
	}
	return tw.Flush()
}
