// Package commands implements the fidomac-log sub-commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/fidomac/fidomac-go/pkg/log"
)

// Selection holds the event selection flags shared by view and filter.
// Empty fields select everything.
type Selection struct {
	ConnID    string
	Target    string
	Since     string // RFC 3339, inclusive
	Until     string // RFC 3339, exclusive
	Layer     string
	Direction string
	Category  string
}

// Filter parses the selection into a reader filter.
func (s Selection) Filter() (log.Filter, error) {
	f := log.Filter{ConnectionID: s.ConnID, Target: s.Target}

	var err error
	if f.TimeStart, err = parseTime("since", s.Since); err != nil {
		return log.Filter{}, err
	}
	if f.TimeEnd, err = parseTime("until", s.Until); err != nil {
		return log.Filter{}, err
	}
	if f.Layer, err = parseEnum("layer", s.Layer, log.LayerChannel, log.LayerFrame, log.LayerSession); err != nil {
		return log.Filter{}, err
	}
	if f.Direction, err = parseEnum("direction", s.Direction, log.DirectionIn, log.DirectionOut); err != nil {
		return log.Filter{}, err
	}
	if f.Category, err = parseEnum("category", s.Category, log.CategoryMessage, log.CategoryState, log.CategoryError); err != nil {
		return log.Filter{}, err
	}
	return f, nil
}

func parseTime(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("bad -%s %q: want RFC 3339", name, s)
	}
	return &t, nil
}

// parseEnum matches s case-insensitively against the names of values.
func parseEnum[T fmt.Stringer](name, s string, values ...T) (*T, error) {
	if s == "" {
		return nil, nil
	}
	names := make([]string, len(values))
	for i, v := range values {
		if strings.EqualFold(s, v.String()) {
			return &v, nil
		}
		names[i] = strings.ToLower(v.String())
	}
	return nil, fmt.Errorf("bad -%s %q: want one of %s", name, s, strings.Join(names, ", "))
}

// each calls fn for every event of path that sel selects.
func each(path string, sel Selection, fn func(log.Event) error) error {
	filter, err := sel.Filter()
	if err != nil {
		return err
	}

	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	for ev, err := range r.Events() {
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}
