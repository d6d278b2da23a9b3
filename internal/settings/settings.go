// Package settings holds the driver-wide configuration the Control
// Connection reads and, for protocol_version, mutates during negotiation.
package settings

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kclarke-dev/ringwatch/internal/logging"
)

// AuthProvider produces the credentials used in the CQL authentication
// exchange (spec §4.1.3 step 3). With a nil AuthProvider any Authenticate
// challenge fails with an AuthenticationError; at protocol version 1 the
// challenge fails whether or not a provider is set.
type AuthProvider interface {
	// Credentials returns the bytes to send in an AuthResponse frame for
	// the named authenticator class (e.g. "...PasswordAuthenticator").
	Credentials(authenticatorClass string) ([]byte, error)
}

// LoadBalancingPolicy is the subset of the load-balancing listener
// contract (spec §6) the settings holder carries a reference to; the
// Control Connection never calls it directly, it only ensures Registry
// listeners are wired before ConnectAsync.
type LoadBalancingPolicy interface {
	HostFound(ip string)
	HostLost(ip string)
	HostUp(ip string)
	HostDown(ip string)
}

const (
	// DefaultPort is the default CQL native protocol port.
	DefaultPort = 9042
	// MaxProtocolVersion is the highest protocol version negotiation
	// starts from absent an override.
	MaxProtocolVersion = 7
	// DefaultReconnectInterval is used when no override is configured.
	DefaultReconnectInterval = 10 * time.Second
	// DefaultConnectionTimeout bounds each request issued by the request
	// runner during connect (spec §5, "Cancellation and timeouts").
	DefaultConnectionTimeout = 5 * time.Second
)

// Settings is the mutable, process-scoped configuration record shared
// between the Control Connection and external callers. Every field except
// protocolVersion is written once at construction and treated as
// read-only afterward; protocolVersion is written only during
// negotiation, guarded by mu, per spec §9.
type Settings struct {
	mu              sync.RWMutex
	protocolVersion int

	AuthProvider        AuthProvider
	ReconnectInterval   time.Duration
	ConnectionTimeout   time.Duration
	Logger              *logging.Logger
	LoadBalancingPolicy LoadBalancingPolicy
	Port                int

	// ClusterName is opaque pass-through used only for log/metric context.
	ClusterName string
}

// New builds a Settings with the given starting protocol version and
// sensible defaults for everything else. Callers override fields by
// direct assignment before the first ConnectAsync; only protocolVersion
// requires the accessor methods after construction.
func New(maxProtocolVersion int) *Settings {
	return &Settings{
		protocolVersion:   maxProtocolVersion,
		ReconnectInterval: DefaultReconnectInterval,
		ConnectionTimeout: DefaultConnectionTimeout,
		Logger:            logging.Discard(),
		Port:              DefaultPort,
	}
}

// Load reads configuration from environment variables with defaults,
// mirroring the teacher's config.Load().
func Load() *Settings {
	s := New(envInt("RINGWATCH_MAX_PROTOCOL_VERSION", MaxProtocolVersion))
	s.ReconnectInterval = envDuration("RINGWATCH_RECONNECT_INTERVAL", DefaultReconnectInterval)
	s.ConnectionTimeout = envDuration("RINGWATCH_CONNECTION_TIMEOUT", DefaultConnectionTimeout)
	s.Port = envInt("RINGWATCH_PORT", DefaultPort)
	s.ClusterName = envStr("RINGWATCH_CLUSTER_NAME", "")
	s.Logger = logging.New(envBool("RINGWATCH_LOG_JSON", false))
	return s
}

// NewTestSettings creates a Settings with sensible defaults for testing,
// using a discard logger so tests don't spam stdout.
func NewTestSettings() *Settings {
	s := New(MaxProtocolVersion)
	s.ReconnectInterval = 10 * time.Millisecond
	s.ConnectionTimeout = 50 * time.Millisecond
	return s
}

// ProtocolVersion reads the current protocol version.
func (s *Settings) ProtocolVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

// SetProtocolVersion writes the current protocol version. Called only by
// the Control Connection's negotiation step (spec §4.1.3 step 2), which
// is required to only ever decrement it within one ConnectAsync call
// (spec §8 invariant).
func (s *Settings) SetProtocolVersion(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolVersion = v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
