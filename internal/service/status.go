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
	"github.com/sirupsen/logrus"
)

// nextStatus encodes the linear order lifecycle. Anything not listed is a
// rejected transition; writing the current status again is a no-op.
var nextStatus = map[string]string{
	enum.OrderStatusPending:   enum.OrderStatusCompleted,
	enum.OrderStatusCompleted: enum.OrderStatusReceived,
}

// StatusService applies order status transitions against the shared store.
// Customer and staff views each hold their own snapshots and converge on
// their next fetch; this service only guards the write side.
type StatusService struct {
	store store.Store
}

// NewStatusService creates a StatusService.
func NewStatusService(s store.Store) *StatusService {
	return &StatusService{store: s}
}

// MarkComplete moves every given order from pending to completed. Staff
// action. Fails on the first order that cannot transition.
func (s *StatusService) MarkComplete(ctx context.Context, orderIDs []string) error {
	return s.setStatus(ctx, orderIDs, enum.OrderStatusCompleted, "")
}

// MarkReceived moves every given order from completed to received without an
// ownership scope. Used by the auto-receive countdown.
func (s *StatusService) MarkReceived(ctx context.Context, orderIDs []string) error {
	return s.setStatus(ctx, orderIDs, enum.OrderStatusReceived, "")
}

// MarkReceivedBy is MarkReceived scoped to the requesting customer: an order
// belonging to anyone else fails the whole call.
func (s *StatusService) MarkReceivedBy(ctx context.Context, userID string, orderIDs []string) error {
	return s.setStatus(ctx, orderIDs, enum.OrderStatusReceived, userID)
}

func (s *StatusService) setStatus(ctx context.Context, orderIDs []string, target, owner string) error {
	if len(orderIDs) == 0 {
		return ErrEmptyOrders
	}
	for _, oid := range orderIDs {
		err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			var order model.CartItem
			if err := tx.Get(ctx, enum.ColOrders, oid, &order); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrOrderNotFound, oid)
				}
				return fmt.Errorf("get order %s: %w", oid, err)
			}
			if owner != "" && order.UserID != owner {
				return fmt.Errorf("%w: %s", ErrOrderNotOwned, oid)
			}
			if order.Status == target {
				return nil // already there, idempotent
			}
			if nextStatus[order.Status] != target {
				return fmt.Errorf("%w: %s -> %s on %s", ErrInvalidTransition, order.Status, target, oid)
			}
			return tx.Update(ctx, enum.ColOrders, oid, map[string]any{"status": target})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GroupObserver watches the orders of one payment group from a single
// session. When a refreshed snapshot shows every order completed, it starts
// a countdown that marks the whole group received unless the customer acts
// first. The countdown fires at most once per group and resets if the
// all-completed state regresses before expiry.
type GroupObserver struct {
	svc       *StatusService
	store     store.Store
	paymentID string
	delay     time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	fired    bool
	orderIDs []string
}

// NewGroupObserver creates an observer for one payment group. delay is the
// auto-receive countdown (10s in production).
func NewGroupObserver(svc *StatusService, s store.Store, paymentID string, delay time.Duration) *GroupObserver {
	return &GroupObserver{svc: svc, store: s, paymentID: paymentID, delay: delay}
}

// Refresh fetches the group's current orders and re-evaluates the
// countdown. Callers poll this; there is no push from the store.
func (o *GroupObserver) Refresh(ctx context.Context) ([]model.CartItem, error) {
	var orders []model.CartItem
	err := o.store.Query(ctx, enum.ColOrders,
		[]store.Filter{store.Where("payment_id", o.paymentID)}, &orders)
	if err != nil {
		return nil, fmt.Errorf("refresh group %s: %w", o.paymentID, err)
	}
	o.evaluate(orders)
	return orders, nil
}

func (o *GroupObserver) evaluate(orders []model.CartItem) {
	allCompleted := len(orders) > 0
	ids := make([]string, 0, len(orders))
	for _, ord := range orders {
		ids = append(ids, ord.OrderID)
		if ord.Status != enum.OrderStatusCompleted {
			allCompleted = false
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.orderIDs = ids

	if !allCompleted {
		if o.timer != nil {
			o.timer.Stop()
			o.timer = nil
		}
		return
	}
	if o.fired || o.timer != nil {
		return
	}
	o.timer = time.AfterFunc(o.delay, o.autoReceive)
}

// ReceiveNow is the explicit customer action. It cancels the countdown and
// marks the group received immediately.
func (o *GroupObserver) ReceiveNow(ctx context.Context) error {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.fired = true
	ids := o.orderIDs
	o.mu.Unlock()

	return o.svc.MarkReceived(ctx, ids)
}

// Stop cancels any running countdown. The observer is done once the session
// leaves the order tracking screen.
func (o *GroupObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *GroupObserver) autoReceive() {
	o.mu.Lock()
	if o.fired {
		o.mu.Unlock()
		return
	}
	o.fired = true
	o.timer = nil
	ids := o.orderIDs
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.svc.MarkReceived(ctx, ids); err != nil {
		logrus.WithError(err).WithField("payment_id", o.paymentID).
			Error("auto-receive failed")
	}
}
