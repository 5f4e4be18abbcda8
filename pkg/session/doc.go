// Package session ties a Channel, the frame codec and a rendezvous queue
// into the client-side transport session.
//
// A session owns exactly one channel and one queue. Channel events drive
// the session:
//
//	open     -> state Open, readiness listeners notified
//	message  -> raw frame handed to the queue (no decoding)
//	error    -> every pending receiver rejected with ErrChannelError
//	close    -> state Closed, every pending receiver rejected with ErrChannelClosed
//
// Send and Receive return single-shot futures. A resolved send future
// means the frame was handed to the channel, not that the authenticator
// processed it.
//
// # Lifecycle
//
//	Connecting -> Open -> Closed
//	     |                  ^
//	     +------------------+   (dial failure)
//
// Closed is terminal. Once closed, Send and Receive fail immediately with
// ErrChannelClosed. A channel error that is not followed by a close leaves
// the session usable.
package session
