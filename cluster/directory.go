// Package cluster implements the authoritative in-memory map of known
// peers the monitor core consults and mutates.
package cluster

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NodeEntry is a directory record for one peer.
type NodeEntry struct {
	Peer  Peer
	State State
}

const subscriberBufferSize = 64

// Directory is the authoritative, insertion-ordered map of known peers and
// their lifecycle states. It is shared-read by every monitor and mutated
// by event publications, so it serializes its own access with a mutex, per
// the concurrency model's shared-resource policy.
type Directory struct {
	logger log.Logger

	mu     sync.RWMutex
	order  []Peer
	nodes  map[Peer]NodeEntry
	subs   []chan Event
	subsMu sync.Mutex
}

// New creates an empty Directory.
func New(logger log.Logger) *Directory {
	return &Directory{
		logger: logger,
		nodes:  make(map[Peer]NodeEntry),
	}
}

// AddNode inserts peer with the given initial state. A peer already
// present is left untouched.
func (d *Directory) AddNode(peer Peer, initial State) {
	d.mu.Lock()

	if _, exists := d.nodes[peer]; exists {
		d.mu.Unlock()
		return
	}

	d.nodes[peer] = NodeEntry{Peer: peer, State: initial}
	d.order = append(d.order, peer)

	d.mu.Unlock()

	level.Info(d.logger).Log("msg", "node added", "peer", peer, "state", initial)
	d.publish(Event{Kind: EventNodeAdded, Peer: peer})
}

// RemoveNode removes peer from the directory, if present.
func (d *Directory) RemoveNode(peer Peer) {
	d.mu.Lock()

	if _, exists := d.nodes[peer]; !exists {
		d.mu.Unlock()
		return
	}

	delete(d.nodes, peer)

	for i, p := range d.order {
		if p == peer {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	d.mu.Unlock()

	level.Info(d.logger).Log("msg", "node removed", "peer", peer)
	d.publish(Event{Kind: EventNodeRemoved, Peer: peer})
}

// GetNode returns the current entry for peer. ok is false if the peer is
// unknown.
func (d *Directory) GetNode(peer Peer) (entry NodeEntry, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok = d.nodes[peer]

	return entry, ok
}

// DownNode idempotently transitions peer to StateDown. It never fails: an
// unknown peer is a silent no-op.
func (d *Directory) DownNode(peer Peer) {
	d.transition(peer, StateDown, EventNodeDown)
}

// UpNode idempotently transitions peer out of StateDown, back to
// StateActive.
func (d *Directory) UpNode(peer Peer) {
	d.transition(peer, StateActive, EventNodeUp)
}

func (d *Directory) transition(peer Peer, to State, evt EventKind) {
	d.mu.Lock()

	entry, ok := d.nodes[peer]
	if !ok || entry.State == to || (evt == EventNodeUp && entry.State != StateDown) {
		d.mu.Unlock()
		return
	}

	entry.State = to
	d.nodes[peer] = entry

	d.mu.Unlock()

	level.Info(d.logger).Log("msg", "node state changed", "peer", peer, "state", to)
	d.publish(Event{Kind: evt, Peer: peer})
}

// Peers returns a snapshot of known peers in insertion order.
func (d *Directory) Peers() []Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Peer, len(d.order))
	copy(out, d.order)

	return out
}

// Subscribe returns a channel that receives every subsequent directory
// change. The channel is buffered; if a subscriber falls behind, the
// oldest undelivered event is dropped rather than blocking the publisher,
// since no monitor's liveness may depend on another subscriber's pace.
func (d *Directory) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBufferSize)

	d.subsMu.Lock()
	d.subs = append(d.subs, ch)
	d.subsMu.Unlock()

	return ch
}

func (d *Directory) publish(evt Event) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	for _, ch := range d.subs {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- evt:
			default:
			}
		}
	}
}
