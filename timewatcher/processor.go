package timewatcher

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/gree/flare/clock"
)

// Processor periodically sweeps a Registry for stale entries. The
// original's mutex+condvar timed wait becomes a timer racing a channel
// close: RequestShutdown closes the channel exactly once, which wakes a
// blocked Run immediately, the same way the condvar signal interrupts
// pthread_cond_timedwait.
type Processor struct {
	registry        *Registry
	pollingInterval time.Duration
	staleAfter      time.Duration
	logger          log.Logger

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewProcessor creates a Processor that sweeps registry every
// pollingInterval, treating any entry older than staleAfter as stale. A
// zero pollingInterval disables the watcher: Run returns immediately.
func NewProcessor(registry *Registry, pollingInterval, staleAfter time.Duration, logger log.Logger) *Processor {
	return &Processor{
		registry:        registry,
		pollingInterval: pollingInterval,
		staleAfter:      staleAfter,
		logger:          logger,
		shutdownCh:      make(chan struct{}),
	}
}

// RequestShutdown wakes a blocked Run and causes it to return on its next
// check. Safe to call more than once or concurrently with Run.
func (p *Processor) RequestShutdown() {
	p.shutdownOnce.Do(func() { close(p.shutdownCh) })
}

// Run sweeps the registry on every tick of pollingInterval until
// RequestShutdown is called or ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	if p.pollingInterval == 0 {
		level.Info(p.logger).Log("msg", "thread watch disabled -> breaking loop")
		return
	}

	for {
		select {
		case <-p.shutdownCh:
			level.Info(p.logger).Log("msg", "thread shutdown request -> breaking loop")
			return
		case <-ctx.Done():
			level.Info(p.logger).Log("msg", "context cancelled -> breaking loop")
			return
		default:
		}

		p.registry.CheckTimestamps(clock.Now(), p.staleAfter)

		timer := time.NewTimer(p.pollingInterval)

		select {
		case <-timer.C:
		case <-p.shutdownCh:
			timer.Stop()
			level.Info(p.logger).Log("msg", "thread shutdown request -> breaking loop")
			return
		case <-ctx.Done():
			timer.Stop()
			level.Info(p.logger).Log("msg", "context cancelled -> breaking loop")
			return
		}
	}
}
