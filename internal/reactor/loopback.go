// Package reactor provides Loopback, a reference Reactor implementation
// used only by cmd/ringwatch's demo entrypoint. internal/control's own
// tests use hand-rolled fakes instead, since the real transport (TCP
// dialing, frame codec) is an excluded external collaborator per spec §1
// — Loopback exists to show the shape of a real implementation, not to
// stand in for one.
package reactor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kclarke-dev/ringwatch/internal/clock"
	"github.com/kclarke-dev/ringwatch/internal/wire"
)

// NodeScript describes how one simulated cluster member responds to
// requests, keyed by request kind. A kind absent from Responses gets the
// zero Response.
type NodeScript struct {
	Responses map[wire.Kind]wire.Response
}

// Loopback is an in-process Reactor simulating a small cluster, fan-out
// grounded on internal/events.Bus's subscriber-channel pattern and timers
// grounded on internal/clock.
type Loopback struct {
	mu    sync.Mutex
	nodes map[string]NodeScript
	conns map[string]*loopbackConn
	clock clock.Clock
}

// NewLoopback builds a Loopback reactor simulating the given nodes, keyed
// by IP.
func NewLoopback(nodes map[string]NodeScript) *Loopback {
	return &Loopback{
		nodes: nodes,
		conns: make(map[string]*loopbackConn),
		clock: clock.Real{},
	}
}

func (l *Loopback) Start(ctx context.Context) error { return nil }

func (l *Loopback) Connect(ctx context.Context, ip string, port int, timeout time.Duration) (wire.Connection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	script, ok := l.nodes[ip]
	if !ok {
		return nil, fmt.Errorf("loopback: no simulated node at %s", ip)
	}
	c := &loopbackConn{script: script, connected: true}
	l.conns[ip] = c
	return c, nil
}

func (l *Loopback) Schedule(delay time.Duration, fn func()) wire.ScheduleHandle {
	cancel := make(chan struct{})
	h := &loopbackHandle{cancel: cancel}
	go func() {
		select {
		case <-l.clock.After(delay):
			fn()
		case <-cancel:
		}
	}()
	return h
}

// Disconnect simulates the reactor losing a node's connection, firing
// whatever OnClose handler the Control Connection installed.
func (l *Loopback) Disconnect(ip string) {
	l.mu.Lock()
	c, ok := l.conns[ip]
	l.mu.Unlock()
	if ok {
		c.simulateClose()
	}
}

// Push delivers ev to ip's connection as if the server pushed it.
func (l *Loopback) Push(ip string, ev wire.Event) {
	l.mu.Lock()
	c, ok := l.conns[ip]
	l.mu.Unlock()
	if ok {
		c.simulatePush(ev)
	}
}

type loopbackHandle struct {
	cancel chan struct{}
	once   sync.Once
}

func (h *loopbackHandle) Cancel() { h.once.Do(func() { close(h.cancel) }) }

type loopbackConn struct {
	mu           sync.Mutex
	script       NodeScript
	connected    bool
	eventHandler func(wire.Event)
	closeHandler func()
}

func (c *loopbackConn) Send(ctx context.Context, req wire.Request, timeout time.Duration) (wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return wire.Response{}, fmt.Errorf("loopback: connection closed")
	}
	return c.script.Responses[req.Kind], nil
}

func (c *loopbackConn) OnEvent(handler func(wire.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandler = handler
}

func (c *loopbackConn) OnClose(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHandler = handler
}

func (c *loopbackConn) Close() error {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	h := c.closeHandler
	c.mu.Unlock()
	if wasConnected && h != nil {
		h()
	}
	return nil
}

func (c *loopbackConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *loopbackConn) simulateClose() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	h := c.closeHandler
	c.mu.Unlock()
	if wasConnected && h != nil {
		h()
	}
}

func (c *loopbackConn) simulatePush(ev wire.Event) {
	c.mu.Lock()
	h := c.eventHandler
	c.mu.Unlock()
	if h != nil {
		h(ev)
	}
}
