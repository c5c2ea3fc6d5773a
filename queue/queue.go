// Package queue defines the closed set of message kinds that can be placed
// on a MonitorHandler's worker inbox. This replaces the original's
// dynamic-cast-by-tag design with a compile-time-closed sum type: every
// kind implements Message via an unexported marker method, so a tag the
// monitor does not recognize can only ever arrive as the explicit Unknown
// variant, decoded at the boundary rather than discovered mid-switch.
package queue

import (
	"context"
	"time"

	"github.com/gree/flare/conn"
)

// Tag names a message kind, kept around purely for logging/diagnostics —
// the worker and handler dispatch on the Go type, not the string.
type Tag string

const (
	TagUpdateMonitorOption Tag = "update_monitor_option"
	TagNodeSync            Tag = "node_sync"
	TagUnknown             Tag = "unknown"
)

// Message is any payload that can be placed on a worker's inbox.
type Message interface {
	Tag() Tag

	// sealed prevents kinds outside this package from satisfying Message,
	// keeping the switch in monitor.processQueue exhaustive.
	sealed()
}

// UpdateMonitorOption carries a new (threshold, interval) pair to apply to
// the handler's debounce state machine. Applying it never fails.
type UpdateMonitorOption struct {
	Threshold int
	Interval  time.Duration
}

func (UpdateMonitorOption) Tag() Tag { return TagUpdateMonitorOption }
func (UpdateMonitorOption) sealed()  {}

// NodeSyncAction is the control-plane work a NodeSync message carries. It
// runs directly against the handler's Connection.
type NodeSyncAction interface {
	Run(ctx context.Context, c *conn.Connection) error
}

// NodeSync carries a replication/config synchronization action to execute
// against the peer's connection.
type NodeSync struct {
	Action NodeSyncAction
}

func (NodeSync) Tag() Tag { return TagNodeSync }
func (NodeSync) sealed()  {}

// Unknown is produced when decoding an inbox entry whose tag does not
// match any known kind. It is never constructed by callers enqueueing
// work; it exists only so the monitor has something uniform to log and
// discard.
type Unknown struct {
	OriginalTag string
}

func (Unknown) Tag() Tag { return TagUnknown }
func (Unknown) sealed()  {}
