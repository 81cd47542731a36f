package keyvalue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// Watchdog periodically probes the Redis connection. On failure it marks the
// store broken and suppresses further probes until the next interval so a
// flapping server does not cause probe storms. Individual store calls are
// never blocked by the watchdog; they surface their own failures.
type Watchdog struct {
	client   *Client
	clock    clockwork.Clock
	interval time.Duration

	broken  atomic.Bool
	probing atomic.Bool
}

// NewWatchdog creates a watchdog probing at the given interval.
func NewWatchdog(client *Client, clock clockwork.Clock, interval time.Duration) *Watchdog {
	w := &Watchdog{
		client:   client,
		clock:    clock,
		interval: interval,
	}
	// Unverified until the first probe succeeds.
	w.broken.Store(true)
	metrics.KVConnectionBroken.Set(1)
	return w
}

// Broken reports whether the last probe failed.
func (w *Watchdog) Broken() bool {
	return w.broken.Load()
}

// Run probes immediately and then once per interval, until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	w.probe(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watchdog) probe(ctx context.Context) {
	// A probe still in flight means the server is slow; don't pile on.
	if !w.probing.CompareAndSwap(false, true) {
		return
	}
	defer w.probing.Store(false)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.client.Ping(probeCtx); err != nil {
		if w.broken.CompareAndSwap(false, true) {
			slog.Error("Connection to Redis server lost", "error", err)
		}
		metrics.KVConnectionBroken.Set(1)
		return
	}

	if w.broken.CompareAndSwap(true, false) {
		slog.Info("Successfully connected to Redis server")
	}
	metrics.KVConnectionBroken.Set(0)
}
