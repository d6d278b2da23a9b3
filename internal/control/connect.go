package control

import (
	"context"
	"fmt"
	"time"

	"github.com/kclarke-dev/ringwatch/internal/host"
	"github.com/kclarke-dev/ringwatch/internal/metrics"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

// runConnect is the six-step connect algorithm (spec §4.1.3):
//  1. candidate selection from the registry's known IPs
//  2. protocol version negotiation via OPTIONS
//  3. STARTUP and, if challenged, authentication
//  4. topology discovery via system.local and system.peers
//  5. event subscription via REGISTER
//  6. binding the connection and transitioning to CONNECTED
//
// It loops over decreasing protocol versions, restarting the candidate
// scan from the first IP whenever a candidate reports a protocol
// mismatch (spec §8 scenario 1). It returns NoHostsAvailable once a full
// scan of the candidates ends with no success and no mismatch (the
// version is then left where it is), or as soon as a candidate reports a
// mismatch at version 1.
func (c *ControlConnection) runConnect(ctx context.Context) error {
	if err := c.reactor.Start(ctx); err != nil {
		return fmt.Errorf("start reactor: %w", err)
	}

	candidates := c.registry.IPs()
	if len(candidates) == 0 {
		return NoHostsAvailable{}
	}

	errs := make(map[string]error)
	version := c.settings.ProtocolVersion()

	for version >= 1 {
		mismatch := false

		for _, ip := range candidates {
			conn, err := c.reactor.Connect(ctx, ip, c.settings.Port, c.settings.ConnectionTimeout)
			if err != nil {
				errs[ip] = err
				continue
			}

			resp, err := c.runner.Execute(ctx, conn, wire.Options(), c.settings.ConnectionTimeout)
			if err != nil {
				errs[ip] = err
				_ = conn.Close()
				continue
			}
			if resp.IsProtocolMismatch() {
				_ = conn.Close()
				next := version - 1
				if next == 0 {
					c.log.Warn(fmt.Sprintf("could not connect using protocol version %d, no lower version to try", version))
					c.settings.SetProtocolVersion(next)
					metrics.ConnectAttemptsTotal.WithLabelValues("no_hosts_available").Inc()
					return NoHostsAvailable{Errors: errs}
				}
				c.log.Warn(fmt.Sprintf("could not connect using protocol version %d (will try again with %d)", version, next))
				c.settings.SetProtocolVersion(next)
				mismatch = true
				break
			}
			if resp.IsError() {
				errs[ip] = fmt.Errorf("options: %s", resp.ErrorMessage)
				_ = conn.Close()
				continue
			}

			if err := c.completeHandshake(ctx, ip, conn); err != nil {
				errs[ip] = err
				_ = conn.Close()
				continue
			}

			metrics.ConnectAttemptsTotal.WithLabelValues("success").Inc()
			metrics.ProtocolVersion.Set(float64(c.settings.ProtocolVersion()))
			return nil
		}

		if mismatch {
			version = c.settings.ProtocolVersion()
			continue
		}
		break
	}

	metrics.ConnectAttemptsTotal.WithLabelValues("no_hosts_available").Inc()
	return NoHostsAvailable{Errors: errs}
}

// completeHandshake runs steps 3–6 against an already-OPTIONS-probed
// connection: STARTUP/auth, discovery, REGISTER, and binding.
func (c *ControlConnection) completeHandshake(ctx context.Context, ip string, conn wire.Connection) error {
	if err := c.startupAndAuthenticate(ctx, conn); err != nil {
		return err
	}
	if err := c.discover(ctx, conn, ip); err != nil {
		return err
	}
	if _, err := c.runner.Execute(ctx, conn, wire.Register(wire.EventStatusChange, wire.EventTopologyChange), c.settings.ConnectionTimeout); err != nil {
		return fmt.Errorf("register for events: %w", err)
	}
	if !c.bindConnection(conn) {
		return errConnectAfterClose
	}
	return nil
}

// startupAndAuthenticate issues STARTUP and, if the server challenges
// with AUTHENTICATE, completes the SASL exchange (spec §4.1.3 step 3).
// Protocol version 1 cannot carry an authentication challenge-response at
// all: any AUTHENTICATE response at v1 is an unconditional
// AuthenticationError, regardless of whether an AuthProvider is
// configured (spec §8 scenario 3).
func (c *ControlConnection) startupAndAuthenticate(ctx context.Context, conn wire.Connection) error {
	resp, err := c.runner.Execute(ctx, conn, wire.Startup(cqlVersion), c.settings.ConnectionTimeout)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	switch resp.Kind {
	case wire.KindReady:
		return nil
	case wire.KindAuthenticate:
		if c.settings.ProtocolVersion() < 2 {
			return AuthenticationError{Message: "protocol version 1 does not support authentication"}
		}
		if c.settings.AuthProvider == nil {
			return AuthenticationError{Message: "server requires authentication but no auth provider is configured"}
		}
		token, err := c.settings.AuthProvider.Credentials(resp.AuthenticatorClass)
		if err != nil {
			return AuthenticationError{Message: err.Error()}
		}
		authResp, err := c.runner.Execute(ctx, conn, wire.AuthResponse(token), c.settings.ConnectionTimeout)
		if err != nil {
			return fmt.Errorf("auth response: %w", err)
		}
		if authResp.Kind != wire.KindAuthSuccess {
			return AuthenticationError{Message: "server rejected credentials"}
		}
		return nil
	case wire.KindError:
		return fmt.Errorf("startup: %s", resp.ErrorMessage)
	default:
		return fmt.Errorf("unexpected response to startup: %s", resp.Kind)
	}
}

// discover queries system.local and system.peers and reports every row
// to the registry as a found host (spec §4.1.3 step 4). contactIP is
// the IP this connection was opened against; the system.local row is
// registered under it.
func (c *ControlConnection) discover(ctx context.Context, conn wire.Connection, contactIP string) error {
	start := time.Now()
	defer func() { metrics.DiscoveryDuration.Observe(time.Since(start).Seconds()) }()

	local, err := c.runner.Execute(ctx, conn, wire.Query("SELECT * FROM system.local"), c.settings.ConnectionTimeout)
	if err != nil {
		return fmt.Errorf("query system.local: %w", err)
	}
	if len(local.Rows) == 0 {
		return errEmptyCluster
	}
	if err := c.registerRow(local.Rows[0], contactIP); err != nil {
		return err
	}

	c.log.Info("Looking for additional nodes")
	peers, err := c.runner.Execute(ctx, conn, wire.Query("SELECT * FROM system.peers"), c.settings.ConnectionTimeout)
	if err != nil {
		return fmt.Errorf("query system.peers: %w", err)
	}
	c.log.Info(fmt.Sprintf("%d additional nodes found", len(peers.Rows)))
	for _, row := range peers.Rows {
		if err := c.registerRow(row, ""); err != nil {
			return err
		}
	}
	return nil
}

// registerRow extracts a host.Attributes out of a system.local/system.peers
// row and reports it to the registry. fallbackIP is used for system.local,
// whose row carries no peer/rpc_address columns of its own.
func (c *ControlConnection) registerRow(row wire.Row, fallbackIP string) error {
	ip := rowIP(row, fallbackIP)
	if ip == "" {
		c.log.Warn("discovery row carried no usable address, skipping")
		return nil
	}

	idRaw, _ := row["host_id"].(string)
	id, err := host.ParseID(idRaw)
	if err != nil {
		return fmt.Errorf("parse host_id for %s: %w", ip, err)
	}
	dc, _ := row["data_center"].(string)
	rack, _ := row["rack"].(string)
	release, _ := row["release_version"].(string)

	return c.registry.HostFound(ip, host.Attributes{
		DataCenter:     dc,
		Rack:           rack,
		ID:             id,
		ReleaseVersion: release,
	})
}

// rowIP resolves the address to register a row under: rpc_address when
// present and not the "listen on every interface" placeholder, otherwise
// peer, otherwise fallbackIP (spec §4.1.3 step 4, rpc_address/peer
// selection rule).
func rowIP(row wire.Row, fallbackIP string) string {
	if rpc, ok := row["rpc_address"].(string); ok && rpc != "" && rpc != "0.0.0.0" {
		return rpc
	}
	if peer, ok := row["peer"].(string); ok && peer != "" {
		return peer
	}
	return fallbackIP
}
