// Package operation defines the polymorphic command objects the monitor
// runs against a peer's Connection. Only the ping variant is required by
// the monitor core; additional operations are a concern of the excluded
// wire-protocol layer.
package operation

import (
	"context"

	"github.com/gree/flare/conn"
)

// Operation is a single request/response exchange against a Connection.
type Operation interface {
	// Ident names the operation, surfaced by the worker as a diagnostic
	// (e.g. "ping").
	Ident() string

	// RunClient sends the request and awaits the response. Any protocol,
	// I/O, or timeout error is returned; nil means success.
	RunClient(ctx context.Context, c *conn.Connection) error
}
