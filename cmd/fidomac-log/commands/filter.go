package commands

import (
	"github.com/fidomac/fidomac-go/pkg/log"
)

// Filter copies the events of path selected by sel into a new .flog file
// at out and returns how many were written.
func Filter(path, out string, sel Selection) (int, error) {
	// Validate before creating out.
	if _, err := sel.Filter(); err != nil {
		return 0, err
	}

	fl, err := log.NewFileLogger(out)
	if err != nil {
		return 0, err
	}

	err = each(path, sel, func(ev log.Event) error {
		fl.Log(ev)
		return fl.Err()
	})
	if cerr := fl.Close(); err == nil {
		err = cerr
	}
	return fl.Count(), err
}
