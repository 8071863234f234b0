package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/store"
)

// Tracker hands out one GroupObserver per payment group and keeps it alive
// across polls, so the auto-receive countdown survives between requests.
type Tracker struct {
	svc   *StatusService
	store store.Store
	delay time.Duration

	mu        sync.Mutex
	observers map[string]*GroupObserver
}

// NewTracker creates a Tracker. delay is the auto-receive countdown applied
// to every group.
func NewTracker(svc *StatusService, s store.Store, delay time.Duration) *Tracker {
	return &Tracker{
		svc:       svc,
		store:     s,
		delay:     delay,
		observers: make(map[string]*GroupObserver),
	}
}

func (t *Tracker) observer(paymentID string) *GroupObserver {
	t.mu.Lock()
	defer t.mu.Unlock()
	obs, ok := t.observers[paymentID]
	if !ok {
		obs = NewGroupObserver(t.svc, t.store, paymentID, t.delay)
		t.observers[paymentID] = obs
	}
	return obs
}

// authorize checks the payment group belongs to userID. An empty userID is
// unscoped, for staff callers.
func (t *Tracker) authorize(ctx context.Context, userID, paymentID string) error {
	if userID == "" {
		return nil
	}
	var payment model.Payment
	if err := t.store.Get(ctx, enum.ColPayments, paymentID, &payment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		return fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	if payment.UserID != userID {
		return fmt.Errorf("%w: %s", ErrPaymentNotOwned, paymentID)
	}
	return nil
}

// Refresh polls one payment group and re-evaluates its countdown. userID
// scopes the call to the payment's owner; empty means unscoped.
func (t *Tracker) Refresh(ctx context.Context, userID, paymentID string) ([]model.CartItem, error) {
	if err := t.authorize(ctx, userID, paymentID); err != nil {
		return nil, err
	}
	return t.observer(paymentID).Refresh(ctx)
}

// Receive marks one payment group received on the customer's request and
// cancels its countdown. Scoped like Refresh.
func (t *Tracker) Receive(ctx context.Context, userID, paymentID string) error {
	if err := t.authorize(ctx, userID, paymentID); err != nil {
		return err
	}
	obs := t.observer(paymentID)
	if _, err := obs.Refresh(ctx); err != nil {
		return err
	}
	err := obs.ReceiveNow(ctx)
	if err == nil {
		t.drop(paymentID)
	}
	return err
}

func (t *Tracker) drop(paymentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.observers, paymentID)
}

// Stop cancels every countdown. Called on shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, obs := range t.observers {
		obs.Stop()
		delete(t.observers, id)
	}
}
