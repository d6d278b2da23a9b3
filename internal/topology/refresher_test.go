package topology

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kclarke-dev/ringwatch/internal/host"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

type fakeConn struct{ connected bool }

func (c *fakeConn) Send(ctx context.Context, req wire.Request, timeout time.Duration) (wire.Response, error) {
	return wire.Response{}, nil
}
func (c *fakeConn) OnEvent(func(wire.Event)) {}
func (c *fakeConn) OnClose(func())           {}
func (c *fakeConn) Close() error             { return nil }
func (c *fakeConn) Connected() bool          { return c.connected }

type fakeQuerier struct{ conn wire.Connection }

func (q fakeQuerier) LastConnection() wire.Connection { return q.conn }

type fakeRunner struct {
	resp wire.Response
	err  error
}

func (r fakeRunner) Execute(ctx context.Context, conn wire.Connection, req wire.Request, timeout time.Duration) (wire.Response, error) {
	return r.resp, r.err
}

type fakeReporter struct {
	mu    sync.Mutex
	found map[string]host.Attributes
}

func newFakeReporter() *fakeReporter { return &fakeReporter{found: make(map[string]host.Attributes)} }

func (r *fakeReporter) HostFound(ip string, attrs host.Attributes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found[ip] = attrs
	return nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRefreshReportsPeerRows(t *testing.T) {
	conn := &fakeConn{connected: true}
	runner := fakeRunner{resp: wire.Response{Rows: []wire.Row{
		{"peer": "10.0.0.5", "data_center": "dc1", "rack": "r1", "release_version": "4.0.1"},
	}}}
	reporter := newFakeReporter()
	r, err := New("@every 1h", fakeQuerier{conn: conn}, runner, reporter, discardLog())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	r.refresh()

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if _, ok := reporter.found["10.0.0.5"]; !ok {
		t.Errorf("found = %v, want 10.0.0.5 present", reporter.found)
	}
}

func TestRefreshSkipsWhenNoConnection(t *testing.T) {
	runner := fakeRunner{resp: wire.Response{Rows: []wire.Row{{"peer": "10.0.0.9"}}}}
	reporter := newFakeReporter()
	r, err := New("@every 1h", fakeQuerier{conn: nil}, runner, reporter, discardLog())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	r.refresh()

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.found) != 0 {
		t.Errorf("found = %v, want empty when no connection is bound", reporter.found)
	}
}

func TestRefreshSkipsOnQueryError(t *testing.T) {
	conn := &fakeConn{connected: true}
	runner := fakeRunner{err: errors.New("timeout")}
	reporter := newFakeReporter()
	r, err := New("@every 1h", fakeQuerier{conn: conn}, runner, reporter, discardLog())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	r.refresh()

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.found) != 0 {
		t.Errorf("found = %v, want empty on query error", reporter.found)
	}
}

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	_, err := New("not a cron expression", fakeQuerier{}, fakeRunner{}, newFakeReporter(), discardLog())
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
