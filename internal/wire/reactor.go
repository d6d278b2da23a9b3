package wire

import (
	"context"
	"time"
)

// ScheduleHandle cancels a timer registered with Reactor.Schedule.
type ScheduleHandle interface {
	Cancel()
}

// Connection is one opened transport connection to a single cluster
// member. The Control Connection is the exclusive owner of at most one
// Connection at a time (spec §3, "Control Connection state").
type Connection interface {
	// Send issues req and waits for its matching response, or ctx/timeout
	// expiry. The request runner contract (spec §6) layers on top of this.
	Send(ctx context.Context, req Request, timeout time.Duration) (Response, error)
	// OnEvent installs the handler invoked for every pushed Event frame
	// received after Register. Only meaningful once, after Register
	// succeeds; installing it again replaces the previous handler.
	OnEvent(handler func(Event))
	// OnClose installs the handler invoked exactly once when the
	// connection is lost, whether by remote close, local Close, or
	// transport error. Never invoked more than once per Connection.
	OnClose(handler func())
	// Close tears down the connection. Idempotent.
	Close() error
	// Connected reports whether the connection is currently usable.
	Connected() bool
}

// Reactor is the I/O event loop collaborator: it opens connections and
// fires timers. Concrete transport (TCP dialing, frame codec) is excluded
// from this module's core per spec §1; Reactor implementations are
// supplied externally (see internal/reactor for a reference
// implementation used only by the demo command).
type Reactor interface {
	// Start prepares the reactor to accept Connect/Schedule calls.
	Start(ctx context.Context) error
	// Connect opens a transport connection to ip:port, bounded by
	// timeout. A non-nil error means the candidate is unreachable (spec
	// §4.1.3 step 1, §4.1.6 "per-candidate errors are recoverable").
	Connect(ctx context.Context, ip string, port int, timeout time.Duration) (Connection, error)
	// Schedule arranges for fn to run once, delay from now, returning a
	// handle that cancels the timer if it hasn't fired yet. Used for the
	// reconnect loop (spec §4.1.4) and nothing else in the core.
	Schedule(delay time.Duration, fn func()) ScheduleHandle
}

// RequestRunner issues one request on one connection and yields its
// response. Kept distinct from Connection.Send per spec §6 so that a
// runner can add cross-cutting behavior (retries, instrumentation)
// without the Control Connection depending on it directly.
type RequestRunner interface {
	Execute(ctx context.Context, conn Connection, req Request, timeout time.Duration) (Response, error)
}

// DefaultRunner is a RequestRunner that does nothing but delegate to the
// connection, the simplest implementation satisfying the contract.
type DefaultRunner struct{}

func (DefaultRunner) Execute(ctx context.Context, conn Connection, req Request, timeout time.Duration) (Response, error) {
	return conn.Send(ctx, req, timeout)
}
