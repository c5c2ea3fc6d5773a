package main

import (
	"flag"
	"strings"
	"time"
)

type cliArgs struct {
	listenAddr    string
	peers         []string
	threshold     int
	probeInterval time.Duration
	staleAfter    time.Duration
	watchInterval time.Duration
	verbose       bool
}

func parseCliArgs() cliArgs {
	args := cliArgs{}

	var peers string

	flag.StringVar(&args.listenAddr, "listen", ":11211", "address the local status endpoint binds to")
	flag.StringVar(&peers, "peers", "", "comma-separated host:port list of peers to monitor")
	flag.IntVar(&args.threshold, "threshold", 3, "consecutive failed probes before a peer is declared down")
	flag.DurationVar(&args.probeInterval, "probe-interval", 5*time.Second, "idle time before a peer is pinged")
	flag.DurationVar(&args.staleAfter, "stale-after", 30*time.Second, "age at which a registered timestamp is considered stale")
	flag.DurationVar(&args.watchInterval, "watch-interval", 10*time.Second, "polling interval for the time watcher sweep")
	flag.BoolVar(&args.verbose, "verbose", false, "verbose logging")

	flag.Parse()

	args.peers = splitPeers(peers)

	return args
}

func splitPeers(s string) []string {
	if s == "" {
		return nil
	}

	var out []string

	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
