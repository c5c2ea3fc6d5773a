package cluster

import (
	"golang.org/x/exp/maps"

	"github.com/gree/flare/internal/generic"
)

// Dump returns every known node entry sorted by peer string, for debug
// logging and status endpoints where deterministic output matters more
// than insertion order.
func (d *Directory) Dump() []NodeEntry {
	d.mu.RLock()
	entries := maps.Values(d.nodes)
	d.mu.RUnlock()

	keyed := make(map[string]NodeEntry, len(entries))
	keys := make([]string, 0, len(entries))

	for _, e := range entries {
		k := e.Peer.String()
		keyed[k] = e
		keys = append(keys, k)
	}

	generic.SortSlice(keys, false)

	out := make([]NodeEntry, len(keys))
	for i, k := range keys {
		out[i] = keyed[k]
	}

	return out
}
