// Package sequence mints monotonically increasing, zero-padded, prefixed
// identifiers from counter documents, one counter per sequence name.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/metrics"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/store"
)

const (
	maxRetries     = 5
	initialBackoff = 20 * time.Millisecond
)

// Sequencer generates IDs through counter transactions. Conflicting
// transactions are retried with backoff up to maxRetries before the
// conflict surfaces to the caller.
type Sequencer struct {
	store store.Store
}

// New creates a Sequencer on the given store.
func New(s store.Store) *Sequencer {
	return &Sequencer{store: s}
}

// Next mints the next ID for the sequence: prefix + zero-padded counter
// value. A missing counter document starts at 0, so the first minted value
// is prefix + 0...01. Concurrent callers never receive the same value.
func (s *Sequencer) Next(ctx context.Context, sequence, prefix string, width int) (string, error) {
	var id string
	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		id, err = NextInTx(ctx, tx, sequence, prefix, width)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// NextInTx mints an ID inside an existing transaction, so the counter bump
// commits atomically with whatever document the ID is for.
func NextInTx(ctx context.Context, tx store.Tx, sequence, prefix string, width int) (string, error) {
	var c model.Counter
	err := tx.Get(ctx, enum.ColCounters, sequence, &c)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("read counter %q: %w", sequence, err)
	}
	c.Last++
	if err := tx.Set(ctx, enum.ColCounters, sequence, c); err != nil {
		return "", fmt.Errorf("write counter %q: %w", sequence, err)
	}
	return Format(prefix, c.Last, width), nil
}

// Do runs fn as a store transaction, retrying on conflict with exponential
// backoff. fn must be side-effect free outside the transaction.
func (s *Sequencer) Do(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.store.RunTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		lastErr = err
		metrics.SequencerConflicts.Inc()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}

// Format renders a counter value as a prefixed, zero-padded ID. Values too
// wide for the requested width keep all their digits.
func Format(prefix string, n int64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// IDLess orders minted IDs by counter value. Once a counter outgrows its
// zero-pad width the IDs get longer, so plain string comparison would sort
// O10000 before O2000; comparing length first keeps mint order.
func IDLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
