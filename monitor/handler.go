// Package monitor implements MonitorHandler: the per-peer debounced
// health state machine that pings a node on idle timeout and executes
// queued control-plane work against it, publishing down_node/up_node
// transitions to the cluster directory.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/gree/flare/cluster"
	"github.com/gree/flare/conn"
	"github.com/gree/flare/operation"
	"github.com/gree/flare/queue"
	"github.com/gree/flare/worker"
)

// directory is the slice of ClusterDirectory the handler depends on. A
// narrow local interface, rather than the concrete *cluster.Directory,
// keeps the handler's tests independent of the directory's locking
// strategy.
type directory interface {
	GetNode(peer cluster.Peer) (cluster.NodeEntry, bool)
	DownNode(peer cluster.Peer)
	UpNode(peer cluster.Peer)
}

// DefaultPingTimeout bounds a single ping round trip.
const DefaultPingTimeout = 2 * time.Second

// Handler is one instance per monitored peer. It exclusively owns one
// worker.Thread and one conn.Connection; it holds a non-owning reference
// to the cluster directory.
type Handler struct {
	thread     *worker.Thread
	connection *conn.Connection
	directory  directory
	peer       cluster.Peer
	logger     log.Logger

	pingTimeout time.Duration

	// mu guards opt and downState. The run loop mutates both on every
	// iteration from its own goroutine, but Status() is read from a
	// status endpoint's own goroutine concurrently with Run, so plain
	// fields here would race.
	mu        sync.Mutex
	opt       Option
	downState int
}

// New constructs a Handler for peer, bound to thread and backed by conn.
// Internal state starts at threshold=0, interval=0, down_state=0, exactly
// as the original handler_monitor constructor does.
func New(thread *worker.Thread, dir directory, peer cluster.Peer, logger log.Logger) *Handler {
	return &Handler{
		thread:      thread,
		connection:  conn.New(),
		directory:   dir,
		peer:        peer,
		logger:      logger,
		pingTimeout: DefaultPingTimeout,
	}
}

// WithConnection overrides the Connection the handler uses, for tests that
// need to control dialing.
func (h *Handler) WithConnection(c *conn.Connection) *Handler {
	h.connection = c
	return h
}

// WithPingTimeout overrides the per-probe ping timeout.
func (h *Handler) WithPingTimeout(d time.Duration) *Handler {
	h.pingTimeout = d
	return h
}

// Status is a read-only snapshot of the handler's diagnostics, safe to
// read from any goroutine.
type Status struct {
	Peer      cluster.Peer
	State     string
	Op        string
	DownState int
	Threshold int
	Interval  time.Duration
}

// Status returns a snapshot of the handler's current diagnostics.
func (h *Handler) Status() Status {
	h.mu.Lock()
	opt := h.opt
	downState := h.downState
	h.mu.Unlock()

	return Status{
		Peer:      h.peer,
		State:     h.thread.State(),
		Op:        h.thread.Op(),
		DownState: downState,
		Threshold: opt.Threshold,
		Interval:  opt.Interval,
	}
}

// Enqueue places msg on the handler's worker inbox.
func (h *Handler) Enqueue(msg queue.Message) error {
	return h.thread.Enqueue(msg)
}

// option returns a copy of the current (threshold, interval) pair.
func (h *Handler) option() Option {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.opt
}

// pullDownStateUpTo raises downState to threshold if it is currently
// lower. It never lowers downState: this is only ever used to resync with
// an externally declared down, never to clear an in-progress escalation.
func (h *Handler) pullDownStateUpTo(threshold int) {
	h.mu.Lock()
	if threshold > h.downState {
		h.downState = threshold
	}
	h.mu.Unlock()
}

// Run executes the monitor's control loop until the worker's shutdown flag
// is observed. It mirrors handler_monitor::run() step for step: connect,
// then loop waiting/dequeuing/resyncing/dispatching.
func (h *Handler) Run(ctx context.Context) {
	h.thread.SetPeer(h.peer.Host, h.peer.Port)
	h.thread.SetState("connect")

	if err := h.connection.Open(ctx, h.peer.Host, h.peer.Port); err != nil {
		level.Error(h.logger).Log("msg", "failed to connect to node server", "peer", h.peer, "err", err)
		h.down()
	}

runLoop:
	for {
		h.thread.SetState("wait")
		h.thread.SetOp("")

		if h.thread.IsShutdownRequested() {
			level.Info(h.logger).Log("msg", "thread shutdown request -> breaking loop", "peer", h.peer)
			h.thread.SetState("shutdown")
			break runLoop
		}

		msg, err := h.thread.Dequeue(ctx, h.option().Interval)

		if h.thread.IsShutdownRequested() {
			level.Info(h.logger).Log("msg", "thread shutdown request -> breaking loop", "peer", h.peer)
			h.thread.SetState("shutdown")
			break runLoop
		}

		// Resync the debounce counter with the directory's authoritative
		// node state: an out-of-band down (declared by another subsystem)
		// must be reflected locally before we decide whether this
		// iteration's result crosses the threshold. Only pull the counter
		// up to match an externally declared down -- never reset it down,
		// since that would erase an in-progress escalation run every
		// iteration and the peer would never reach threshold.
		if entry, ok := h.directory.GetNode(h.peer); ok && entry.State == cluster.StateDown {
			h.pullDownStateUpTo(h.option().Threshold)
		}

		switch {
		case err == worker.ErrTimedOut:
			if procErr := h.processMonitor(ctx); procErr != nil {
				h.down()
			} else {
				h.up()
			}
		case err != nil:
			// Context cancellation or some other Dequeue failure: treat
			// like a shutdown request rather than spinning.
			level.Info(h.logger).Log("msg", "dequeue failed -> breaking loop", "peer", h.peer, "err", err)
			h.thread.SetState("shutdown")
			break runLoop
		default:
			if procErr := h.processQueue(ctx, msg); procErr != nil {
				h.down()
			}
		}
	}

	_ = h.connection.Close()
}

// processMonitor runs a single ping probe, reopening the connection first
// if it is not currently available.
func (h *Handler) processMonitor(ctx context.Context) error {
	if !h.connection.IsAvailable() {
		level.Info(h.logger).Log("msg", "connection unavailable -> re-opening", "peer", h.peer)

		if err := h.connection.Open(ctx, h.peer.Host, h.peer.Port); err != nil {
			return fmt.Errorf("reopen connection: %w", err)
		}
	}

	ping := operation.NewPing(h.pingTimeout)

	h.thread.SetState("execute")
	h.thread.SetOp(ping.Ident())

	return ping.RunClient(ctx, h.connection)
}

// processQueue dispatches one dequeued message by its concrete type.
func (h *Handler) processQueue(ctx context.Context, msg queue.Message) error {
	h.thread.SetState("execute")
	h.thread.SetOp(string(msg.Tag()))

	switch m := msg.(type) {
	case queue.UpdateMonitorOption:
		old := h.option()

		level.Debug(h.logger).Log(
			"msg", "updating monitor option",
			"peer", h.peer,
			"threshold_from", old.Threshold, "threshold_to", m.Threshold,
			"interval_from", old.Interval, "interval_to", m.Interval,
		)

		h.mu.Lock()
		h.opt.Threshold = m.Threshold
		h.opt.Interval = m.Interval
		h.mu.Unlock()

		return nil

	case queue.NodeSync:
		h.mu.Lock()
		threshold := h.opt.Threshold
		downState := h.downState
		h.mu.Unlock()

		// A node already considered down does not accept further sync
		// work until it recovers. This returns an error, which bumps the
		// failure counter again on an already-escalated node -- a
		// surprising but deliberately preserved policy.
		if threshold > 0 && downState >= threshold {
			level.Info(h.logger).Log(
				"msg", "node seems already down -> skip processing queue",
				"peer", h.peer, "tag", m.Tag(),
			)

			return fmt.Errorf("monitor: peer %s considered down, skipping node_sync", h.peer)
		}

		return m.Action.Run(ctx, h.connection)

	default:
		level.Warn(h.logger).Log("msg", "unknown queue tag -> skip processing", "peer", h.peer, "tag", msg.Tag())

		return fmt.Errorf("monitor: unknown queue tag %q", msg.Tag())
	}
}

// down increments the debounce counter and, if it now exactly equals the
// threshold, publishes a DownNode transition. Strict equality (not >=)
// ensures repeated failures after escalation never re-publish.
func (h *Handler) down() {
	h.mu.Lock()
	h.downState++
	downState := h.downState
	threshold := h.opt.Threshold
	h.mu.Unlock()

	level.Debug(h.logger).Log("msg", "node seems down", "peer", h.peer, "down_state", downState)

	if downState == threshold {
		level.Info(h.logger).Log(
			"msg", "down_state reached threshold -> dispatching node down event",
			"peer", h.peer, "down_state", downState, "threshold", threshold,
		)

		h.directory.DownNode(h.peer)
	}
}

// up publishes an UpNode transition if the peer was in the escalated
// range on entry, then unconditionally resets the debounce counter.
func (h *Handler) up() {
	h.mu.Lock()
	downState := h.downState
	threshold := h.opt.Threshold
	h.downState = 0
	h.mu.Unlock()

	if downState >= threshold && threshold > 0 {
		level.Info(h.logger).Log("msg", "node seems up -> dispatching node up event", "peer", h.peer)
		h.directory.UpNode(h.peer)
	}
}
