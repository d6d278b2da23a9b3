package control

import (
	"context"

	"github.com/kclarke-dev/ringwatch/internal/metrics"
)

// scheduleReconnect arranges for attemptReconnect to run once after the
// configured reconnect interval (spec §4.1.4). Any previously scheduled
// timer is cancelled first so at most one is ever pending.
func (c *ControlConnection) scheduleReconnect() {
	c.lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Cancel()
	}
	interval := c.settings.ReconnectInterval
	c.reconnectTimer = c.reactor.Schedule(interval, c.attemptReconnect)
	c.unlock()
}

// attemptReconnect re-runs the connect algorithm against the registry's
// current candidate set. On failure it reschedules itself indefinitely;
// the reconnect loop never gives up on its own (spec §4.1.4, §8 scenario
// 7) — only CloseAsync stops it.
func (c *ControlConnection) attemptReconnect() {
	c.lock()
	if c.state != StateReconnecting {
		c.unlock()
		return
	}
	c.unlock()

	ctx := context.Background()
	if err := c.runConnect(ctx); err != nil {
		c.log.Warn("reconnect attempt failed, will retry", "error", err)

		c.lock()
		stillReconnecting := c.state == StateReconnecting
		c.unlock()
		if stillReconnecting {
			c.scheduleReconnect()
		}
		return
	}

	c.lock()
	c.reconnectTimer = nil
	c.unlock()
	metrics.ReconnectsTotal.Inc()
	c.log.Info("reconnected")
}
