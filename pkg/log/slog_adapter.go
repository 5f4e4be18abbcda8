package log

import (
	"context"
	"log/slog"

	"github.com/fidomac/fidomac-go/pkg/wire"
)

// SlogAdapter renders protocol events as slog records. Frames and state
// changes are logged at debug level, errors at warn.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns a Logger that writes to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	level, msg := slog.LevelDebug, event.Category.String()
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs,
		slog.String("conn", event.ConnectionID),
		slog.String("layer", event.Layer.String()),
	)
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}

	switch {
	case event.Frame != nil:
		msg = "frame " + event.Direction.String()
		attrs = append(attrs, slog.Group("frame", frameAttrs(event.Frame)...))
	case event.StateChange != nil:
		sc := event.StateChange
		msg = sc.Entity.String() + " " + sc.OldState + "->" + sc.NewState
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
	case event.Error != nil:
		level, msg = slog.LevelWarn, event.Error.Message
		attrs = append(attrs, slog.Group("error",
			"layer", event.Error.Layer.String(),
			"op", event.Error.Context,
			"pending", event.Error.Pending,
		))
	}

	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func frameAttrs(f *FrameEvent) []any {
	attrs := []any{"size", f.Size}
	if f.Transport != nil {
		attrs = append(attrs, "transport", wire.Transport(*f.Transport).String())
	}
	if f.Command != nil {
		attrs = append(attrs, "command", wire.Command(*f.Command).String())
	}
	if f.Truncated {
		attrs = append(attrs, "truncated", true)
	}
	if len(f.Data) > 0 {
		attrs = append(attrs, "hex", HexDump(f.Data))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
