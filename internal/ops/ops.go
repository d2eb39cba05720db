// Package ops holds the cross-entity orchestrators: soft delete and
// restore, cross-project moves, recursive copies, pretranslation, QA
// runs, row confirmation and trash cleanup.
//
// Each orchestrator opens a single transaction at the outermost level;
// repositories never commit on their own. Transient backend errors are
// retried a bounded number of times with jittered backoff, everything
// else propagates unchanged. Lifecycle events are emitted around every
// operation; event delivery is best-effort and never affects the
// database outcome.
package ops

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/storage"
)

// maxAttempts bounds transient retries per operation, first try included.
const maxAttempts = 3

// Backend is what an orchestrator needs from storage: the repositories
// plus transaction control. Both a raw Store and a factory Session
// satisfy it.
type Backend interface {
	storage.Stores
	Mode() storage.Mode
	RunInTransaction(ctx context.Context, fn func(tx storage.Stores) error) error
}

// Coordinator runs the composed operations against one backend.
type Coordinator struct {
	be   Backend
	sink events.Sink
	log  zerolog.Logger
}

// New builds a coordinator. A nil sink drops all events.
func New(be Backend, sink events.Sink, log zerolog.Logger) *Coordinator {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Coordinator{be: be, sink: sink, log: log}
}

// retry runs fn, retrying only transient backend errors.
func (c *Coordinator) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if storage.IsRetryable(err) {
			c.log.Warn().Err(err).Msg("retrying transient backend error")
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxAttempts-1), ctx))
}

// transact runs fn in one transaction with transient retry. fn must be
// safe to re-run from scratch; a retried transaction starts clean.
func (c *Coordinator) transact(ctx context.Context, fn func(tx storage.Stores) error) error {
	return c.retry(ctx, func() error {
		return c.be.RunInTransaction(ctx, fn)
	})
}
