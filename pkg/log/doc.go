// Package log records protocol traces of fidomac sessions.
//
// A trace is a sequence of Events: frames crossing the WebSocket, channel
// and session state transitions, and failures together with the number of
// receivers they reached. Traces are separate from the operational log
// output of the commands, which uses the standard log package.
//
// Sinks:
//
//	NewFileLogger   appends events to a .flog file (a stream of CBOR maps)
//	NewSlogAdapter  renders events through log/slog, with hex dumps of frames
//	NewMultiLogger  fans out to several sinks
//
// A Reader streams a .flog file back, optionally through a Filter:
//
//	r, err := log.NewFilteredReader("session.flog", log.Filter{ConnectionID: id})
//	...
//	for ev, err := range r.Events() {
//		...
//	}
//
// The fidomac-log command views, filters, exports and summarizes .flog files.
package log
