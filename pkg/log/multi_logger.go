package log

// MultiLogger fans each event out to several loggers in order.
type MultiLogger []Logger

// NewMultiLogger combines loggers into one. Nil and no-op loggers are
// dropped and nested MultiLoggers are flattened. With nothing left it
// returns NoopLogger, and with a single logger it returns that logger.
func NewMultiLogger(loggers ...Logger) Logger {
	var m MultiLogger
	for _, l := range loggers {
		switch l := l.(type) {
		case nil, NoopLogger:
		case MultiLogger:
			m = append(m, l...)
		default:
			m = append(m, l)
		}
	}

	switch len(m) {
	case 0:
		return NoopLogger{}
	case 1:
		return m[0]
	default:
		return m
	}
}

// Log implements Logger.
func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}
