// Command flared runs the cluster coordination and node-health monitoring
// subsystem standalone: it bootstraps a ClusterDirectory from a static peer
// list, starts one MonitorHandler per peer, runs the time watcher sweep,
// and serves a JSON status snapshot.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/gree/flare/cluster"
	"github.com/gree/flare/internal/multierror"
	"github.com/gree/flare/monitor"
	"github.com/gree/flare/queue"
	"github.com/gree/flare/timewatcher"
	"github.com/gree/flare/worker"
)

func main() {
	appCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	args := parseCliArgs()

	if !args.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	directory := cluster.New(logger)

	peers := make([]cluster.Peer, 0, len(args.peers))
	for _, raw := range args.peers {
		peer, err := parsePeer(raw)
		if err != nil {
			level.Error(logger).Log("msg", "invalid peer address", "addr", raw, "err", err)
			os.Exit(1)
		}

		peers = append(peers, peer)
		directory.AddNode(peer, cluster.StateActive)
	}

	handlers := make([]*monitor.Handler, 0, len(peers))
	threads := make([]*worker.Thread, 0, len(peers))

	var wg sync.WaitGroup

	for _, peer := range peers {
		thread := worker.New()
		handler := monitor.New(thread, directory, peer, kitlog.With(logger, "peer", peer.String()))

		handlers = append(handlers, handler)
		threads = append(threads, thread)

		wg.Add(1)

		go func(h *monitor.Handler) {
			defer wg.Done()
			h.Run(appCtx)
		}(handler)

		if err := handler.Enqueue(queue.UpdateMonitorOption{
			Threshold: args.threshold,
			Interval:  args.probeInterval,
		}); err != nil {
			level.Error(logger).Log("msg", "failed to apply initial monitor option", "peer", peer, "err", err)
		}
	}

	registry := timewatcher.NewRegistry().WithLogger(logger)
	processor := timewatcher.NewProcessor(registry, args.watchInterval, args.staleAfter, logger)

	wg.Add(1)

	go func() {
		defer wg.Done()
		processor.Run(appCtx)
	}()

	server := &http.Server{
		Addr:    args.listenAddr,
		Handler: statusHandler(directory, handlers),
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "status server exited with error", "err", err)
		}
	}()

	<-appCtx.Done()
	level.Info(logger).Log("msg", "shutdown requested")

	shutdownErrs := multierror.New[string]()

	for _, t := range threads {
		t.RequestShutdown()
	}

	processor.RequestShutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrs.Add("status-server", err)
	}

	wg.Wait()

	if combined := shutdownErrs.Combined(); combined != nil {
		level.Error(logger).Log("msg", "errors during shutdown", "err", combined)
		os.Exit(1)
	}
}

func parsePeer(raw string) (cluster.Peer, error) {
	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		return cluster.Peer{}, fmt.Errorf("split host:port: %w", err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cluster.Peer{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	return cluster.Peer{Host: strings.TrimSpace(host), Port: port}, nil
}
