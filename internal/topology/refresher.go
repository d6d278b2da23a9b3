// Package topology runs a periodic full re-scan of system.peers,
// supplementing the event-driven discovery the control connection already
// performs. It is a domain-stack supplement grounded on gocql's
// ringDescriber.refreshRing — the dropped "periodic full ring refresh"
// behavior original_source/ drivers in this lineage carry but spec.md's
// distillation left out.
package topology

import (
	"context"
	"log/slog"

	cron "github.com/robfig/cron/v3"

	"github.com/kclarke-dev/ringwatch/internal/host"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

// Querier is the subset of the control connection's capability a
// Refresher needs: a live connection to run a discovery query against.
// Reporting what a refresh finds goes through Reporter instead.
// internal/control.ControlConnection satisfies this via LastConnection
// behind a thin adapter (see cmd/ringwatch for the wiring).
type Querier interface {
	LastConnection() wire.Connection
}

// Reporter receives rows discovered by a refresh pass. It is satisfied by
// *registry.Registry's HostFound method via a small adapter, kept as an
// interface here so this package does not import internal/registry
// directly.
type Reporter interface {
	HostFound(ip string, attrs host.Attributes) error
}

// Refresher runs a cron schedule that re-queries system.peers and reports
// every row it finds to a Reporter.
type Refresher struct {
	cron     *cron.Cron
	querier  Querier
	runner   wire.RequestRunner
	reporter Reporter
	log      *slog.Logger
}

// New builds a Refresher that fires on the given cron expression (standard
// five-field syntax, e.g. "*/5 * * * *" for every five minutes).
func New(expr string, querier Querier, runner wire.RequestRunner, reporter Reporter, log *slog.Logger) (*Refresher, error) {
	c := cron.New()
	r := &Refresher{
		cron:     c,
		querier:  querier,
		runner:   runner,
		reporter: reporter,
		log:      log,
	}
	if _, err := c.AddFunc(expr, r.refresh); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins running the schedule in the background.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the schedule, waiting for any in-flight refresh to finish.
func (r *Refresher) Stop() { <-r.cron.Stop().Done() }

func (r *Refresher) refresh() {
	conn := r.querier.LastConnection()
	if conn == nil || !conn.Connected() {
		r.log.Debug("skipping periodic topology refresh, no connection bound")
		return
	}

	ctx := context.Background()
	resp, err := r.runner.Execute(ctx, conn, wire.Query("SELECT * FROM system.peers"), 0)
	if err != nil {
		r.log.Warn("periodic topology refresh failed", "error", err)
		return
	}

	for _, row := range resp.Rows {
		ip := rowIP(row)
		if ip == "" {
			continue
		}
		idRaw, _ := row["host_id"].(string)
		id, err := host.ParseID(idRaw)
		if err != nil {
			r.log.Warn("periodic refresh: could not parse host_id", "ip", ip, "error", err)
			continue
		}
		dc, _ := row["data_center"].(string)
		rack, _ := row["rack"].(string)
		release, _ := row["release_version"].(string)

		if err := r.reporter.HostFound(ip, host.Attributes{
			DataCenter:     dc,
			Rack:           rack,
			ID:             id,
			ReleaseVersion: release,
		}); err != nil {
			r.log.Warn("periodic refresh: could not report host", "ip", ip, "error", err)
		}
	}
}

func rowIP(row wire.Row) string {
	if rpc, ok := row["rpc_address"].(string); ok && rpc != "" && rpc != "0.0.0.0" {
		return rpc
	}
	if peer, ok := row["peer"].(string); ok && peer != "" {
		return peer
	}
	return ""
}
