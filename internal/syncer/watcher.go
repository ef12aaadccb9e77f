package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Watcher turns a reachability probe into an online/offline signal with
// discrete transition events, standing in for the runtime network-status API.
type Watcher struct {
	probe    func(ctx context.Context) bool
	interval time.Duration
	log      zerolog.Logger

	online atomic.Bool
	probed atomic.Bool

	mu   sync.Mutex
	subs []chan bool
}

func NewWatcher(probe func(ctx context.Context) bool, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		probe:    probe,
		interval: interval,
		log:      logger.With().Str("component", "watcher").Logger(),
	}
}

// Online reports the last observed connectivity state. Before the first probe
// completes it optimistically reports online, so a startup drain is attempted
// and the network call remains the authority.
func (w *Watcher) Online() bool {
	if !w.probed.Load() {
		return true
	}
	return w.online.Load()
}

// Subscribe returns a channel receiving connectivity transitions: true when
// the device comes online, false when it goes offline. The channel is
// buffered; a slow consumer misses intermediate flaps, never the latest state.
func (w *Watcher) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Run probes immediately and then on every tick until ctx is cancelled,
// notifying subscribers on each state transition.
func (w *Watcher) Run(ctx context.Context) {
	w.check(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	nowOnline := w.probe(ctx)
	first := !w.probed.Swap(true)
	wasOnline := w.online.Swap(nowOnline)
	if !first && nowOnline == wasOnline {
		return
	}
	if nowOnline {
		w.log.Info().Msg("connectivity restored")
	} else {
		w.log.Warn().Msg("connectivity lost")
	}
	w.notify(nowOnline)
}

func (w *Watcher) notify(online bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		// Drop a stale queued transition so the channel always carries
		// the latest state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- online:
		default:
		}
	}
}
