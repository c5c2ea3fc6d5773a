// Package worker implements the long-lived cooperative worker bound to a
// single monitored peer: a bounded inbox, a shutdown flag, and the
// observable state/op strings a status endpoint can report.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/gree/flare/internal/generic"
	"github.com/gree/flare/queue"
)

// ErrTimedOut is returned by Dequeue when no message arrives within the
// requested interval.
var ErrTimedOut = errors.New("worker: dequeue timed out")

// ErrInboxFull is returned by Enqueue when the bounded inbox has no room.
// Enqueue is intentionally non-blocking: the directory's event-publishing
// path enqueues work for every monitored peer, and a blocking send here
// would let one stuck peer stall delivery to all the others.
var ErrInboxFull = errors.New("worker: inbox full")

// defaultInboxSize bounds the number of outstanding messages a single
// peer's worker will buffer before Enqueue starts failing.
const defaultInboxSize = 32

// Thread is a single goroutine's worth of per-peer state: the inbox it
// dequeues from, and the diagnostics a status endpoint can read from any
// other goroutine without synchronizing with the worker loop.
type Thread struct {
	inbox chan queue.Message

	shutdown generic.Atomic[bool]
	host     generic.Atomic[string]
	port     generic.Atomic[int]
	state    generic.Atomic[string]
	op       generic.Atomic[string]
}

// New creates a Thread with a bounded inbox of the default size.
func New() *Thread {
	return NewWithInboxSize(defaultInboxSize)
}

// NewWithInboxSize creates a Thread whose inbox holds at most size
// messages before Enqueue starts returning ErrInboxFull.
func NewWithInboxSize(size int) *Thread {
	t := &Thread{inbox: make(chan queue.Message, size)}
	t.shutdown.Store(false)
	t.host.Store("")
	t.port.Store(0)
	t.state.Store("")
	t.op.Store("")

	return t
}

// SetPeer records the peer this thread is monitoring, for diagnostics.
func (t *Thread) SetPeer(host string, port int) {
	t.host.Store(host)
	t.port.Store(port)
}

// Peer returns the peer recorded by SetPeer.
func (t *Thread) Peer() (string, int) {
	return t.host.Load(), t.port.Load()
}

// SetState records the worker's current lifecycle state ("connect",
// "wait", "execute", "shutdown", ...), for diagnostics.
func (t *Thread) SetState(s string) {
	t.state.Store(s)
}

// State returns the value last passed to SetState.
func (t *Thread) State() string {
	return t.state.Load()
}

// SetOp records the identifier of the operation currently executing, or
// "" when idle.
func (t *Thread) SetOp(op string) {
	t.op.Store(op)
}

// Op returns the value last passed to SetOp.
func (t *Thread) Op() string {
	return t.op.Load()
}

// Enqueue places msg on the inbox without blocking. It fails with
// ErrInboxFull if the inbox is at capacity.
func (t *Thread) Enqueue(msg queue.Message) error {
	select {
	case t.inbox <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}

// Dequeue blocks for up to timeout waiting for the next inbox message. A
// zero timeout blocks until a message arrives or the context is cancelled;
// a shutdown request does not wake it. Messages are delivered in enqueue order,
// which a Go channel already guarantees without any extra bookkeeping.
func (t *Thread) Dequeue(ctx context.Context, timeout time.Duration) (queue.Message, error) {
	var timeoutCh <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case msg := <-t.inbox:
		return msg, nil
	case <-timeoutCh:
		return nil, ErrTimedOut
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestShutdown sets the cooperative shutdown flag. It does not
// interrupt an in-flight Dequeue directly; the run loop observes the flag
// at its two designated checkpoints (top of loop, after dequeue), per the
// cooperative-cancellation design note.
func (t *Thread) RequestShutdown() {
	t.shutdown.Store(true)
}

// IsShutdownRequested reports whether RequestShutdown has been called.
func (t *Thread) IsShutdownRequested() bool {
	return t.shutdown.Load()
}
