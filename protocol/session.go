package protocol

import "go.uber.org/atomic"

// Session holds the per-connection state the engine mutates while running
// (spec.md §3 "Session state"). The display name is fixed for the
// session's lifetime; the outbound counter and shutdown flag are read and
// written from different goroutines (the engine's own loop and whatever
// external source delivers the shutdown signal), so both are atomics
// rather than plain fields guarded by a mutex — mirroring the teacher's
// use of an atomic bool for cheaply-shared single-value state.
type Session struct {
	DisplayName string

	outboundCounter atomic.Uint32
	shuttingDown    atomic.Bool
}

// NewSession creates a Session for displayName with the outbound counter
// initialised to 1, per spec.md §3.
func NewSession(displayName string) *Session {
	s := &Session{DisplayName: displayName}
	s.outboundCounter.Store(1)
	return s
}

// nextCounter returns the current outbound counter value and advances it
// by one with 8-bit wraparound. Acknowledgements must never call this:
// they echo the inbound counter instead (spec.md §4.7.3).
func (s *Session) nextCounter() uint8 {
	c := uint8(s.outboundCounter.Load())
	s.outboundCounter.Store(uint32(c + 1))
	return c
}

// MarkShuttingDown flips the session into its terminal state. It is safe
// to call from any goroutine and idempotent.
func (s *Session) MarkShuttingDown() {
	s.shuttingDown.Store(true)
}

// ShuttingDown reports whether MarkShuttingDown has been called.
func (s *Session) ShuttingDown() bool {
	return s.shuttingDown.Load()
}
