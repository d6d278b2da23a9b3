// Command ringwatch is a demo/integration entrypoint wiring together the
// control connection, registry, periodic topology refresher, and a
// prometheus metrics endpoint against an in-process simulated cluster
// (internal/reactor.Loopback). It exists to exercise the subsystem
// end-to-end; a real deployment supplies its own Reactor against an
// actual CQL-family cluster.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kclarke-dev/ringwatch/internal/control"
	"github.com/kclarke-dev/ringwatch/internal/host"
	"github.com/kclarke-dev/ringwatch/internal/metrics"
	"github.com/kclarke-dev/ringwatch/internal/reactor"
	"github.com/kclarke-dev/ringwatch/internal/registry"
	"github.com/kclarke-dev/ringwatch/internal/settings"
	"github.com/kclarke-dev/ringwatch/internal/topology"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

var version = "dev"

// registryReporter adapts *registry.Registry to topology.Reporter without
// topology importing internal/registry directly.
type registryReporter struct {
	reg *registry.Registry
}

func (r registryReporter) HostFound(ip string, attrs host.Attributes) error {
	return r.reg.HostFound(ip, attrs)
}

// controlQuerier adapts *control.ControlConnection to topology.Querier.
type controlQuerier struct {
	cc *control.ControlConnection
}

func (q controlQuerier) LastConnection() wire.Connection { return q.cc.LastConnection() }

func main() {
	s := settings.Load()
	log := s.Logger.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	fmt.Println("ringwatch " + version)

	store, err := registry.OpenBoltStore(envOr("RINGWATCH_STORE_PATH", "ringwatch.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open registry store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := registry.New(log)
	if _, err := reg.WithStore(store); err != nil {
		fmt.Fprintf(os.Stderr, "seed registry from store: %v\n", err)
		os.Exit(1)
	}

	seedContactPoint(reg, envOr("RINGWATCH_CONTACT_POINT", "127.0.0.1"))

	rc := reactor.NewLoopback(map[string]reactor.NodeScript{
		"127.0.0.1": demoNodeScript(),
	})

	cc := control.New(s, reg, rc, wire.DefaultRunner{})

	refresher, err := topology.New(
		envOr("RINGWATCH_REFRESH_CRON", "@every 5m"),
		controlQuerier{cc: cc},
		wire.DefaultRunner{},
		registryReporter{reg: reg},
		log,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build topology refresher: %v\n", err)
		os.Exit(1)
	}
	refresher.Start()
	defer refresher.Stop()

	if _, err := cc.ConnectAsync(ctx).Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	log.Info("control connection established", "known_hosts", len(reg.IPs()))

	if textfilePath := os.Getenv("RINGWATCH_METRICS_TEXTFILE_PATH"); textfilePath != "" {
		if err := metrics.WriteTextfile(textfilePath); err != nil {
			log.Warn("failed to write metrics textfile", "path", textfilePath, "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	httpServer := &http.Server{Addr: envOr("RINGWATCH_LISTEN_ADDR", ":9090"), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	log.Info("ringwatch started")
	<-ctx.Done()

	log.Info("shutting down")
	_ = httpServer.Close()
	if _, err := cc.CloseAsync().Wait(); err != nil {
		log.Error("error during control connection shutdown", "error", err)
	}
	log.Info("ringwatch shutdown complete")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func seedContactPoint(reg *registry.Registry, ip string) {
	if reg.HostKnown(ip) {
		return
	}
	_ = reg.HostFound(ip, host.Attributes{DataCenter: "dc1", Rack: "r1"})
}

// demoNodeScript scripts a single-node cluster with no peers, enough to
// exercise the full connect sequence against the loopback reactor.
func demoNodeScript() reactor.NodeScript {
	return reactor.NodeScript{
		Responses: map[wire.Kind]wire.Response{
			wire.KindOptions: {Kind: wire.KindSupported},
			wire.KindStartup: {Kind: wire.KindReady},
			wire.KindRegister: {Kind: wire.KindResult},
			wire.KindQuery: {
				Kind: wire.KindResult,
				Rows: []wire.Row{{"data_center": "dc1", "rack": "r1", "release_version": "4.0.1"}},
			},
		},
	}
}
