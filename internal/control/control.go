// Package control implements the Control Connection: protocol negotiation,
// the authentication gate, topology discovery, event subscription, and the
// reconnection supervisor (spec §4.1). It is the 60%-share core this
// module exists to implement; the I/O reactor, request runner, and wire
// codec are injected collaborators (internal/wire) per spec §1/§6.
package control

import (
	"context"
	"log/slog"

	"github.com/kclarke-dev/ringwatch/internal/async"
	"github.com/kclarke-dev/ringwatch/internal/metrics"
	"github.com/kclarke-dev/ringwatch/internal/registry"
	"github.com/kclarke-dev/ringwatch/internal/settings"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

// cqlVersion is announced in every STARTUP frame (spec §4.1.3 step 3).
const cqlVersion = "3.0.0"

// ControlConnection is the single long-lived administrative connection
// owned by this component (spec §3, "Control connection").
type ControlConnection struct {
	mu    chan struct{} // binary semaphore; see lock()/unlock()
	state State

	settings *settings.Settings
	registry *registry.Registry
	reactor  wire.Reactor
	runner   wire.RequestRunner
	log      *slog.Logger

	conn           wire.Connection
	reconnectTimer wire.ScheduleHandle
}

// New constructs a ControlConnection in state IDLE. runner may be nil, in
// which case wire.DefaultRunner is used.
func New(s *settings.Settings, r *registry.Registry, reactor wire.Reactor, runner wire.RequestRunner) *ControlConnection {
	if runner == nil {
		runner = wire.DefaultRunner{}
	}
	c := &ControlConnection{
		mu:       make(chan struct{}, 1),
		state:    StateIdle,
		settings: s,
		registry: r,
		reactor:  reactor,
		runner:   runner,
		log:      s.Logger.Logger,
	}
	c.mu <- struct{}{}
	return c
}

func (c *ControlConnection) lock()   { <-c.mu }
func (c *ControlConnection) unlock() { c.mu <- struct{}{} }

// setState must be called with c's lock held. It centralizes the
// ringwatch_control_connection_state gauge update alongside the field
// write so the two can never drift.
func (c *ControlConnection) setState(s State) {
	c.state = s
	metrics.ControlConnectionState.Set(float64(s))
}

// State returns the current lifecycle state.
func (c *ControlConnection) State() State {
	c.lock()
	defer c.unlock()
	return c.state
}

// LastConnection returns the currently bound connection, if any. Exposed
// for the reconnect-loop testable properties (spec §8 scenarios 7, 9),
// which assert on last_connection.connected?.
func (c *ControlConnection) LastConnection() wire.Connection {
	c.lock()
	defer c.unlock()
	return c.conn
}

// ConnectAsync is idempotent: from CONNECTED it is a no-op success; from
// any other non-terminal state it runs the connect algorithm (spec
// §4.1.1, §4.1.3). On exhaustion of all candidates it fails with
// NoHostsAvailable.
func (c *ControlConnection) ConnectAsync(ctx context.Context) *async.Future[struct{}] {
	c.lock()
	if c.state == StateConnected {
		c.unlock()
		return async.Resolved(struct{}{})
	}
	if c.state == StateClosing || c.state == StateClosed {
		c.unlock()
		return async.Failed[struct{}](errConnectAfterClose)
	}
	c.setState(StateConnecting)
	c.unlock()

	future := async.NewFuture[struct{}]()
	go func() {
		if err := c.runConnect(ctx); err != nil {
			c.lock()
			if c.state != StateClosing && c.state != StateClosed {
				c.setState(StateIdle)
			}
			c.unlock()
			future.Reject(err)
			return
		}
		future.Resolve(struct{}{})
	}()
	return future
}

// CloseAsync transitions to CLOSING, cancels any scheduled reconnect, and
// closes the bound connection if any. Never fails (spec §4.1.1, §7).
func (c *ControlConnection) CloseAsync() *async.Future[struct{}] {
	c.lock()
	if c.state == StateIdle {
		c.setState(StateClosed)
		c.unlock()
		return async.Resolved(struct{}{})
	}

	c.setState(StateClosing)
	timer := c.reconnectTimer
	c.reconnectTimer = nil
	conn := c.conn
	c.conn = nil
	c.unlock()

	if timer != nil {
		timer.Cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}

	c.lock()
	c.setState(StateClosed)
	c.unlock()

	return async.Resolved(struct{}{})
}

var errConnectAfterClose = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "control connection is closing or closed" }

// bindConnection installs conn as the owned connection, wires its event
// and close handlers, and transitions to CONNECTED (spec §4.1.3 step 6).
// Returns false (without installing anything) if the connection has moved
// to CLOSING/CLOSED concurrently with the connect attempt finishing.
func (c *ControlConnection) bindConnection(conn wire.Connection) bool {
	c.lock()
	if c.state == StateClosing || c.state == StateClosed {
		c.unlock()
		return false
	}
	c.conn = conn
	c.setState(StateConnected)
	c.unlock()

	conn.OnClose(c.handleConnectionLost)
	conn.OnEvent(c.handleEvent)
	return true
}

// handleConnectionLost is installed on every bound Connection. It is the
// reactor's connection-lost signal (spec §4.1.2, §4.1.4).
func (c *ControlConnection) handleConnectionLost() {
	c.lock()
	if c.state == StateClosing || c.state == StateClosed {
		c.unlock()
		return
	}
	c.setState(StateReconnecting)
	c.conn = nil
	c.unlock()

	c.log.Warn("control connection lost, entering reconnect loop")
	c.scheduleReconnect()
}
