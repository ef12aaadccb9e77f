// Package syncer drains the offline operation queue against the remote ledger
// API whenever connectivity is available.
package syncer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Francodev23/joyas-pwa/internal/apiclient"
	"github.com/Francodev23/joyas-pwa/internal/metrics"
	"github.com/Francodev23/joyas-pwa/internal/queue"
)

// Coordinator converts queued operations into confirmed remote state:
// exactly-once from the caller's perspective on success, at-least-once
// attempted on failure.
type Coordinator struct {
	queue   queue.Store
	client  *apiclient.Client
	online  func() bool
	log     zerolog.Logger
	metrics *metrics.Collector

	syncing atomic.Bool
}

// New builds a Coordinator. online is a cheap precondition signal; pass nil
// to always attempt the drain (the network call itself is the authority).
func New(store queue.Store, client *apiclient.Client, online func() bool, logger zerolog.Logger, collector *metrics.Collector) *Coordinator {
	if collector == nil {
		collector = metrics.New()
	}
	return &Coordinator{
		queue:   store,
		client:  client,
		online:  online,
		log:     logger.With().Str("component", "syncer").Logger(),
		metrics: collector,
	}
}

// Sync performs one drain pass: snapshot the queue, replay each operation in
// ascending id order, remove each from the queue only after confirmed remote
// success. A failed operation is retained and the pass continues; it is not
// retried within the same pass. Only a storage fault makes Sync return an
// error.
//
// A single-flight guard coalesces overlapping invocations: a Sync that starts
// while another is in flight returns immediately, since removal-before-next-op
// already guarantees the running pass observes everything still pending.
func (c *Coordinator) Sync(ctx context.Context) error {
	if c.online != nil && !c.online() {
		return nil
	}
	if !c.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.syncing.Store(false)

	ops, err := c.queue.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list pending operations: %w", err)
	}
	if len(ops) == 0 {
		c.metrics.QueueDepth.Set(0)
		return nil
	}
	c.log.Info().Int("pending", len(ops)).Msg("draining operation queue")

	for _, op := range ops {
		if err := c.client.Dispatch(ctx, op); err != nil {
			// Remote rejection and transport failure are handled the
			// same way: keep the operation for a later pass.
			c.metrics.SyncOps.WithLabelValues("failure").Inc()
			c.log.Warn().
				Int64("id", op.ID).
				Str("type", string(op.Type)).
				Err(err).
				Msg("operation replay failed, keeping in queue")
			continue
		}
		if err := c.queue.Remove(ctx, op.ID); err != nil {
			return fmt.Errorf("remove replayed operation %d: %w", op.ID, err)
		}
		c.metrics.SyncOps.WithLabelValues("success").Inc()
		c.log.Info().Int64("id", op.ID).Str("type", string(op.Type)).Msg("operation replayed")
	}

	if depth, err := c.queue.Count(ctx); err == nil {
		c.metrics.QueueDepth.Set(float64(depth))
	}
	return nil
}

// Run triggers Sync once at startup if already online, then on every
// offline-to-online transition until ctx is cancelled. events carries the
// watcher's transition stream (true means online).
func (c *Coordinator) Run(ctx context.Context, events <-chan bool) {
	if c.online == nil || c.online() {
		if err := c.Sync(ctx); err != nil {
			c.log.Error().Err(err).Msg("startup sync failed")
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case nowOnline, ok := <-events:
			if !ok {
				return
			}
			if !nowOnline {
				continue
			}
			if err := c.Sync(ctx); err != nil {
				c.log.Error().Err(err).Msg("sync failed")
			}
		}
	}
}
