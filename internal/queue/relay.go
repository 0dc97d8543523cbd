package queue

import (
	"context"
	"time"

	"basmah/internal/metrics"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Relay drains the outbox table into a Publisher. Delivery is at least once:
// an event published but not marked is sent again on the next pass.
type Relay struct {
	store       repository.OutboxStore
	pub         Publisher
	batch       int
	maxAttempts int
	every       time.Duration
}

func NewRelay(store repository.OutboxStore, pub Publisher, batch, maxAttempts int, every time.Duration) *Relay {
	if batch < 1 {
		batch = 100
	}
	if maxAttempts < 1 {
		maxAttempts = 10
	}
	if every <= 0 {
		every = 5 * time.Second
	}
	return &Relay{store: store, pub: pub, batch: batch, maxAttempts: maxAttempts, every: every}
}

// RelayOnce publishes up to one batch of pending events in insertion order.
func (r *Relay) RelayOnce(ctx context.Context) (published, failed int, err error) {
	events, err := r.store.ListPending(ctx, r.maxAttempts, r.batch)
	if err != nil {
		return 0, 0, errors.Wrap(err, "list pending outbox events")
	}
	for _, e := range events {
		if err := r.pub.Publish(ctx, FromOutbox(e)); err != nil {
			failed++
			metrics.OutboxPublished.WithLabelValues("error").Inc()
			log.Warn().Err(err).Uint("outbox_id", e.ID).Str("event_type", e.EventType).Int("attempts", e.Attempts+1).Msg("outbox publish failed")
			if mErr := r.store.MarkFailed(ctx, e.ID, err.Error()); mErr != nil {
				return published, failed, errors.Wrap(mErr, "mark outbox event failed")
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, e.ID); err != nil {
			return published, failed, errors.Wrap(err, "mark outbox event published")
		}
		published++
		metrics.OutboxPublished.WithLabelValues("ok").Inc()
	}
	return published, failed, nil
}

// Run relays until ctx is cancelled. A full batch is followed immediately by
// another pass.
func (r *Relay) Run(ctx context.Context) {
	log.Info().Dur("interval", r.every).Msg("outbox relay started")
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay stopped")
			return
		case <-timer.C:
		}
		published, failed, err := r.RelayOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("outbox relay pass failed")
		}
		next := r.every
		if err == nil && failed == 0 && published == r.batch {
			next = 0
		}
		timer.Reset(next)
	}
}
