// Package conn implements the duplex byte-stream connection used by the
// monitor to talk to a single peer. The wire protocol carried inside each
// frame (the memcached-compatible command set) is an external collaborator
// outside this package's contract — conn only guarantees whole-frame
// delivery and availability tracking.
package conn

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Dialer establishes the underlying network connection. Exposed as a field
// rather than hardcoded so tests can substitute an in-memory pipe.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func defaultDialer(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{}
	return d.DialContext(ctx, "tcp", addr)
}

// Connection is a reusable, non-shared duplex stream to one peer. It is
// exclusively owned by a single MonitorHandler; nothing in this package
// makes it safe to call concurrently from more than one goroutine, by
// design (spec: "Connection ownership ... prohibit any sharing at the type
// level").
type Connection struct {
	dial Dialer

	nc   net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	host string
	port int

	available atomic.Bool
}

// New creates a Connection that has not yet been opened.
func New() *Connection {
	return &Connection{dial: defaultDialer}
}

// NewWithDialer creates a Connection using a custom dialer, for tests.
func NewWithDialer(d Dialer) *Connection {
	return &Connection{dial: d}
}

// Open establishes the stream to host:port. A failed open is non-fatal;
// the caller (the monitor run loop) decides whether and when to retry.
func (c *Connection) Open(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)

	nc, err := c.dial(ctx, addr)
	if err != nil {
		c.available.Store(false)
		return fmt.Errorf("open %s: %w", addr, err)
	}

	if c.nc != nil {
		_ = c.nc.Close()
	}

	c.nc = nc
	c.r = bufio.NewReader(nc)
	c.w = bufio.NewWriter(nc)
	c.host = host
	c.port = port
	c.available.Store(true)

	return nil
}

// IsAvailable reports whether the last I/O on this connection left it in a
// usable state. False before the first successful Open.
func (c *Connection) IsAvailable() bool {
	return c.available.Load()
}

// Close releases the underlying socket. Safe to call on a connection that
// was never opened.
func (c *Connection) Close() error {
	c.available.Store(false)

	if c.nc == nil {
		return nil
	}

	err := c.nc.Close()
	c.nc = nil

	return err
}

// Send writes a single frame and flushes it, honoring the deadline.
func (c *Connection) Send(deadline time.Time, payload []byte) error {
	if c.nc == nil {
		c.available.Store(false)
		return fmt.Errorf("conn: send on unopened connection")
	}

	if err := c.nc.SetWriteDeadline(deadline); err != nil {
		c.available.Store(false)
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := writeFrame(c.w, payload); err != nil {
		c.available.Store(false)
		return err
	}

	if err := c.w.Flush(); err != nil {
		c.available.Store(false)
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}

// Receive blocks for the next whole frame, honoring the deadline.
func (c *Connection) Receive(deadline time.Time) ([]byte, error) {
	if c.nc == nil {
		c.available.Store(false)
		return nil, fmt.Errorf("conn: receive on unopened connection")
	}

	if err := c.nc.SetReadDeadline(deadline); err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	payload, err := readFrame(c.r)
	if err != nil {
		c.available.Store(false)
		return nil, err
	}

	return payload, nil
}

// Peer returns the host and port this connection is bound to, once opened.
func (c *Connection) Peer() (string, int) {
	return c.host, c.port
}
