package log

// Logger receives protocol events. Log is called from the channel and
// session goroutines, so implementations must be safe for concurrent use
// and return quickly.
type Logger interface {
	Log(event Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls fn(event).
func (fn LoggerFunc) Log(event Event) { fn(event) }

// NoopLogger drops every event.
type NoopLogger struct{}

// Log implements Logger.
func (NoopLogger) Log(Event) {}
