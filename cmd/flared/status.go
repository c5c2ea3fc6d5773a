package main

import (
	"encoding/json"
	"net/http"

	"github.com/gree/flare/cluster"
	"github.com/gree/flare/monitor"
)

// statusSnapshot is the JSON body served at the -listen address.
type statusSnapshot struct {
	Nodes    []cluster.NodeEntry `json:"nodes"`
	Monitors []monitor.Status    `json:"monitors"`
}

func statusHandler(dir *cluster.Directory, handlers []*monitor.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := statusSnapshot{
			Nodes:    dir.Dump(),
			Monitors: make([]monitor.Status, len(handlers)),
		}

		for i, h := range handlers {
			snap.Monitors[i] = h.Status()
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
