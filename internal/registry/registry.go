// Package registry maintains the authoritative in-memory set of known
// cluster hosts and notifies listeners synchronously on every change.
package registry

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/kclarke-dev/ringwatch/internal/host"
	"github.com/kclarke-dev/ringwatch/internal/metrics"
)

// Listener is the load-balancing listener contract (spec §4.2, §6).
// Implementations must not block and must not re-enter the Registry that
// is calling them (spec §9, Open Question — resolved as "detected and
// rejected", see ErrReentrantMutation).
type Listener interface {
	HostFound(h host.Host)
	HostLost(ip string)
	HostUp(ip string)
	HostDown(ip string)
}

// ErrReentrantMutation is returned when a Registry mutation method is
// called from inside a listener callback the Registry itself triggered.
var ErrReentrantMutation = errors.New("registry: reentrant mutation from within a listener callback")

// Store persists discovered hosts so a later process restart can seed its
// Registry with more than the statically configured contact points. It is
// a domain-stack supplement (SPEC_FULL.md §5.2), not part of spec.md's
// Registry contract: failures here are logged and never block or reorder
// listener notification.
type Store interface {
	Load() ([]host.Host, error)
	Save(h host.Host) error
	Delete(ip string) error
}

// Registry is the in-memory authoritative set of known hosts.
type Registry struct {
	mu        sync.Mutex
	ips       []string // insertion order
	hosts     map[string]host.Host
	up        map[string]bool // liveness state, independent of presence in hosts
	listeners []Listener
	log       *slog.Logger
	store     Store
	notifying bool // guards against listener re-entrancy
}

// New creates an empty Registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		hosts: make(map[string]host.Host),
		up:    make(map[string]bool),
		log:   log,
	}
}

// WithStore attaches a persistence Store and loads any hosts it already
// holds into the Registry's ordered set, giving ConnectAsync candidates
// beyond the configured contact points. WithStore does not notify
// listeners. A seeded host that discovery later reports with attributes
// equal to the stored ones is treated as already known, so no listener
// receives HostFound for it; one reported with changed attributes emits
// HostFound as usual.
func (r *Registry) WithStore(s Store) (*Registry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store = s
	hosts, err := s.Load()
	if err != nil {
		return r, err
	}
	for _, h := range hosts {
		if _, exists := r.hosts[h.IP]; exists {
			continue
		}
		r.ips = append(r.ips, h.IP)
		r.hosts[h.IP] = h
	}
	return r, nil
}

// AddListener appends l to the listener list. Must be called before
// ConnectAsync for the "every host present after connect produced exactly
// one HostFound" invariant (spec §8) to hold for l.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// HostFound records a discovered host. If ip is already known and attrs
// equals the stored host's attributes, this is a no-op; otherwise the
// mapping is updated and HostFound is emitted to every listener. The
// first-ever call for an ip always emits (spec §4.2).
func (r *Registry) HostFound(ip string, attrs host.Attributes) error {
	r.mu.Lock()
	if r.notifying {
		r.mu.Unlock()
		metrics.RegistryMutationErrorsTotal.Inc()
		r.log.Error("rejected reentrant registry mutation", "op", "host_found", "ip", ip)
		return ErrReentrantMutation
	}

	existing, known := r.hosts[ip]
	if known && existing.Attrs() == attrs {
		r.mu.Unlock()
		return nil
	}

	h := host.WithAttrs(ip, attrs)
	if !known {
		r.ips = append(r.ips, ip)
	}
	r.hosts[ip] = h
	r.up[ip] = true
	metrics.KnownHosts.Set(float64(len(r.ips)))
	metrics.HostsUp.Set(float64(r.countUp()))
	listeners := r.snapshotListeners()
	r.notifying = true
	r.mu.Unlock()

	r.log.Info("host found", "ip", ip, "data_center", h.DataCenter, "rack", h.Rack)
	for _, l := range listeners {
		l.HostFound(h)
	}

	r.mu.Lock()
	r.notifying = false
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Save(h); err != nil {
			r.log.Warn("failed to persist discovered host", "ip", ip, "error", err)
		}
	}
	return nil
}

// HostUp marks ip as up, emitting HostUp if and only if the liveness state
// flips from down to up (spec §4.2).
func (r *Registry) HostUp(ip string) error {
	return r.flipLiveness(ip, true)
}

// HostDown marks ip as down, emitting HostDown if and only if the
// liveness state flips from up to down (spec §4.2).
func (r *Registry) HostDown(ip string) error {
	return r.flipLiveness(ip, false)
}

func (r *Registry) flipLiveness(ip string, up bool) error {
	r.mu.Lock()
	if r.notifying {
		r.mu.Unlock()
		metrics.RegistryMutationErrorsTotal.Inc()
		r.log.Error("rejected reentrant registry mutation", "op", livenessOpName(up), "ip", ip)
		return ErrReentrantMutation
	}

	if _, known := r.hosts[ip]; !known {
		r.mu.Unlock()
		return nil
	}
	if r.up[ip] == up {
		r.mu.Unlock()
		return nil
	}
	r.up[ip] = up
	metrics.HostsUp.Set(float64(r.countUp()))
	listeners := r.snapshotListeners()
	r.notifying = true
	r.mu.Unlock()

	r.log.Debug("host liveness changed", "ip", ip, "up", up)
	for _, l := range listeners {
		if up {
			l.HostUp(ip)
		} else {
			l.HostDown(ip)
		}
	}

	r.mu.Lock()
	r.notifying = false
	r.mu.Unlock()
	return nil
}

func livenessOpName(up bool) string {
	if up {
		return "host_up"
	}
	return "host_down"
}

// HostLost removes ip from the mapping, emitting HostLost if and only if
// the IP was known (spec §4.2).
func (r *Registry) HostLost(ip string) error {
	r.mu.Lock()
	if r.notifying {
		r.mu.Unlock()
		metrics.RegistryMutationErrorsTotal.Inc()
		r.log.Error("rejected reentrant registry mutation", "op", "host_lost", "ip", ip)
		return ErrReentrantMutation
	}

	if _, known := r.hosts[ip]; !known {
		r.mu.Unlock()
		return nil
	}
	delete(r.hosts, ip)
	delete(r.up, ip)
	r.ips = removeString(r.ips, ip)
	metrics.KnownHosts.Set(float64(len(r.ips)))
	metrics.HostsUp.Set(float64(r.countUp()))
	listeners := r.snapshotListeners()
	r.notifying = true
	r.mu.Unlock()

	r.log.Info("host lost", "ip", ip)
	for _, l := range listeners {
		l.HostLost(ip)
	}

	r.mu.Lock()
	r.notifying = false
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Delete(ip); err != nil {
			r.log.Warn("failed to delete persisted host", "ip", ip, "error", err)
		}
	}
	return nil
}

// HostKnown is a constant-time membership test (spec §4.2).
func (r *Registry) HostKnown(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.hosts[ip]
	return ok
}

// Hosts returns a snapshot of currently known hosts in insertion order.
func (r *Registry) Hosts() []host.Host {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]host.Host, 0, len(r.ips))
	for _, ip := range r.ips {
		out = append(out, r.hosts[ip])
	}
	return out
}

// IPs returns a snapshot of known IPs in insertion order.
func (r *Registry) IPs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ips))
	copy(out, r.ips)
	return out
}

// Get returns the stored Host for ip, if known.
func (r *Registry) Get(ip string) (host.Host, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[ip]
	return h, ok
}

// countUp must be called with r.mu held.
func (r *Registry) countUp() int {
	n := 0
	for _, up := range r.up {
		if up {
			n++
		}
	}
	return n
}

func (r *Registry) snapshotListeners() []Listener {
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func removeString(ss []string, target string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
