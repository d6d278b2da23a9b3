package control

import (
	"context"
	"fmt"

	"github.com/kclarke-dev/ringwatch/internal/metrics"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

// handleEvent dispatches one pushed Event frame per spec §4.1.5. It runs
// on whatever goroutine the bound Connection delivers events on.
func (c *ControlConnection) handleEvent(ev wire.Event) {
	metrics.EventsReceivedTotal.WithLabelValues(string(ev.Family), string(ev.Subtype)).Inc()
	switch ev.Family {
	case wire.EventStatusChange:
		c.handleStatusChange(ev)
	case wire.EventTopologyChange:
		c.handleTopologyChange(ev)
	default:
		c.log.Warn("received event of unrecognized family", "family", string(ev.Family))
	}
}

func (c *ControlConnection) handleStatusChange(ev wire.Event) {
	switch ev.Subtype {
	case wire.SubtypeUp:
		c.log.Debug("status change: up", "address", ev.Address)
		// spec §4.1.5: refresh a known host on UP; an unknown address is
		// ignored (it will surface as a TOPOLOGY_CHANGE NEW_NODE instead).
		if !c.registry.HostKnown(ev.Address) {
			return
		}
		c.refreshKnownHost(ev.Address)
	case wire.SubtypeDown:
		c.log.Debug("status change: down", "address", ev.Address)
		if err := c.registry.HostDown(ev.Address); err != nil {
			c.log.Error("failed to mark host down", "address", ev.Address, "error", err)
		}
	default:
		c.log.Warn("unrecognized status change subtype", "subtype", string(ev.Subtype))
	}
}

func (c *ControlConnection) handleTopologyChange(ev wire.Event) {
	switch ev.Subtype {
	case wire.SubtypeNewNode:
		c.log.Debug("topology change: new node", "address", ev.Address)
		// spec §4.1.5: an unknown address is a genuinely new member, looked
		// up via peers-by-IP and added; an already-known address is ignored.
		if c.registry.HostKnown(ev.Address) {
			return
		}
		c.addNewNode(ev.Address)
	case wire.SubtypeRemovedNode:
		c.log.Debug("topology change: removed node", "address", ev.Address)
		if err := c.registry.HostLost(ev.Address); err != nil {
			c.log.Error("failed to remove lost host", "address", ev.Address, "error", err)
		}
	default:
		c.log.Warn("unrecognized topology change subtype", "subtype", string(ev.Subtype))
	}
}

// queryPeerByIP issues the peers-by-IP lookup (spec §4.1.5,
// "SELECT … FROM system.peers WHERE peer = ?") against the bound
// connection for address, returning the single matching row if any.
func (c *ControlConnection) queryPeerByIP(address string) (wire.Row, bool, error) {
	conn := c.LastConnection()
	if conn == nil || !conn.Connected() {
		return nil, false, fmt.Errorf("no connection bound")
	}

	ctx := context.Background()
	resp, err := c.runner.Execute(ctx, conn, wire.Query("SELECT * FROM system.peers WHERE peer = ?", address), c.settings.ConnectionTimeout)
	if err != nil {
		return nil, false, err
	}
	for _, row := range resp.Rows {
		if rowIP(row, "") == address {
			return row, true, nil
		}
	}
	return nil, false, nil
}

// refreshKnownHost handles STATUS_CHANGE(UP) for an address already known
// to the registry: the peers-by-IP query is re-run and the result fed back
// through HostFound so a stale attribute set gets refreshed (spec §4.1.5).
//
// If the refresh yields no row at all (Open Question §9.1), the host's
// stored attributes are left unchanged and a warning is logged, since
// guessing at attributes would violate the "attrs describe a real,
// discovered member" invariant more than leaving them stale does.
func (c *ControlConnection) refreshKnownHost(address string) {
	row, found, err := c.queryPeerByIP(address)
	if err != nil {
		c.log.Error("failed to refresh system.peers for known host", "address", address, "error", err)
		return
	}
	if !found {
		c.log.Warn("refresh on UP returned no rows, leaving host attributes unchanged", "address", address)
		return
	}
	if err := c.registerRow(row, address); err != nil {
		c.log.Error("failed to register refreshed host", "address", address, "error", err)
	}
}

// addNewNode handles TOPOLOGY_CHANGE(NEW_NODE) for an address not yet
// known to the registry: the peers-by-IP query locates its row and reports
// it via HostFound (spec §4.1.5).
func (c *ControlConnection) addNewNode(address string) {
	row, found, err := c.queryPeerByIP(address)
	if err != nil {
		c.log.Error("failed to query system.peers for new node", "address", address, "error", err)
		return
	}
	if !found {
		c.log.Warn("new node address not present in system.peers, leaving registry unchanged", "address", address)
		return
	}
	if err := c.registerRow(row, address); err != nil {
		c.log.Error("failed to register new node", "address", address, "error", err)
	}
}
