package settings

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"RINGWATCH_MAX_PROTOCOL_VERSION", "RINGWATCH_RECONNECT_INTERVAL",
		"RINGWATCH_CONNECTION_TIMEOUT", "RINGWATCH_PORT", "RINGWATCH_CLUSTER_NAME",
		"RINGWATCH_LOG_JSON",
	} {
		os.Unsetenv(k)
	}

	s := Load()
	if s.ProtocolVersion() != MaxProtocolVersion {
		t.Errorf("ProtocolVersion() = %d, want %d", s.ProtocolVersion(), MaxProtocolVersion)
	}
	if s.ReconnectInterval != DefaultReconnectInterval {
		t.Errorf("ReconnectInterval = %s, want %s", s.ReconnectInterval, DefaultReconnectInterval)
	}
	if s.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", s.Port, DefaultPort)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RINGWATCH_MAX_PROTOCOL_VERSION", "4")
	t.Setenv("RINGWATCH_RECONNECT_INTERVAL", "1s")
	t.Setenv("RINGWATCH_PORT", "19042")

	s := Load()
	if s.ProtocolVersion() != 4 {
		t.Errorf("ProtocolVersion() = %d, want 4", s.ProtocolVersion())
	}
	if s.ReconnectInterval != time.Second {
		t.Errorf("ReconnectInterval = %s, want 1s", s.ReconnectInterval)
	}
	if s.Port != 19042 {
		t.Errorf("Port = %d, want 19042", s.Port)
	}
}

func TestSetProtocolVersionMonotonicUsage(t *testing.T) {
	s := NewTestSettings()
	start := s.ProtocolVersion()

	s.SetProtocolVersion(start - 1)
	if got := s.ProtocolVersion(); got != start-1 {
		t.Errorf("ProtocolVersion() = %d, want %d", got, start-1)
	}
}

func TestConcurrentProtocolVersionAccess(t *testing.T) {
	s := NewTestSettings()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.SetProtocolVersion(i % 7)
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		_ = s.ProtocolVersion()
	}
	<-done
}
