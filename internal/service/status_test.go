package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/store"
)

func newStatusFixture(t *testing.T) (*StatusService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewStatusService(mem), mem
}

func seedPayment(t *testing.T, mem *store.Memory, id, userID string, orderIDs ...string) {
	t.Helper()
	p := model.Payment{PaymentID: id, OrderIDs: orderIDs, UserID: userID}
	if err := mem.Set(context.Background(), enum.ColPayments, id, p); err != nil {
		t.Fatalf("seed payment %s: %v", id, err)
	}
}

func orderStatus(t *testing.T, mem *store.Memory, id string) string {
	t.Helper()
	var order model.CartItem
	if err := mem.Get(context.Background(), enum.ColOrders, id, &order); err != nil {
		t.Fatalf("get order %s: %v", id, err)
	}
	return order.Status
}

func TestStatusFollowsLinearLifecycle(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()
	seedOrders(t, mem, "C0001", "O0001")

	// pending cannot jump straight to received
	if err := svc.MarkReceived(ctx, []string{"O0001"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending->received: got %v, want ErrInvalidTransition", err)
	}

	if err := svc.MarkComplete(ctx, []string{"O0001"}); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusCompleted {
		t.Fatalf("status = %q, want completed", got)
	}

	if err := svc.MarkReceived(ctx, []string{"O0001"}); err != nil {
		t.Fatalf("MarkReceived: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusReceived {
		t.Fatalf("status = %q, want received", got)
	}

	// received never regresses
	if err := svc.MarkComplete(ctx, []string{"O0001"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("received->completed: got %v, want ErrInvalidTransition", err)
	}
}

func TestStatusWriteIsIdempotent(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()
	seedOrders(t, mem, "C0001", "O0001")

	if err := svc.MarkComplete(ctx, []string{"O0001"}); err != nil {
		t.Fatalf("first MarkComplete: %v", err)
	}
	if err := svc.MarkComplete(ctx, []string{"O0001"}); err != nil {
		t.Fatalf("repeat MarkComplete: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusCompleted {
		t.Fatalf("status = %q, want completed", got)
	}
}

func TestStatusUnknownOrder(t *testing.T) {
	svc, _ := newStatusFixture(t)
	if err := svc.MarkComplete(context.Background(), []string{"O9999"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
}

func TestGroupObserverAutoReceivesAfterDelay(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001", "O0002")
	for _, id := range []string{"O0001", "O0002"} {
		if err := mem.Update(ctx, enum.ColOrders, id, map[string]any{
			"status":     enum.OrderStatusCompleted,
			"payment_id": "P0001",
		}); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	obs := NewGroupObserver(svc, mem, "P0001", 20*time.Millisecond)
	defer obs.Stop()
	if _, err := obs.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if orderStatus(t, mem, "O0001") == enum.OrderStatusReceived {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, id := range []string{"O0001", "O0002"} {
		if got := orderStatus(t, mem, id); got != enum.OrderStatusReceived {
			t.Errorf("order %s status = %q, want received after countdown", id, got)
		}
	}
}

func TestGroupObserverHoldsWhileAnyOrderPending(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001", "O0002")
	for _, id := range []string{"O0001", "O0002"} {
		if err := mem.Update(ctx, enum.ColOrders, id, map[string]any{"payment_id": "P0001"}); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}
	// Only one of the two is completed.
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{"status": enum.OrderStatusCompleted}); err != nil {
		t.Fatalf("update: %v", err)
	}

	obs := NewGroupObserver(svc, mem, "P0001", 20*time.Millisecond)
	defer obs.Stop()
	if _, err := obs.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusCompleted {
		t.Errorf("order O0001 status = %q, countdown must not run with a pending sibling", got)
	}
}

func TestGroupObserverExplicitReceiveCancelsCountdown(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001")
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{
		"status":     enum.OrderStatusCompleted,
		"payment_id": "P0001",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	obs := NewGroupObserver(svc, mem, "P0001", time.Hour)
	defer obs.Stop()
	if _, err := obs.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := obs.ReceiveNow(ctx); err != nil {
		t.Fatalf("ReceiveNow: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusReceived {
		t.Fatalf("status = %q, want received", got)
	}
}

func TestGroupObserverStopsCountdownOnRegress(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001")
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{
		"status":     enum.OrderStatusCompleted,
		"payment_id": "P0001",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	obs := NewGroupObserver(svc, mem, "P0001", 50*time.Millisecond)
	defer obs.Stop()
	if _, err := obs.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// The snapshot regresses before the countdown expires.
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{"status": enum.OrderStatusPending}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := obs.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusPending {
		t.Errorf("status = %q, countdown should have been cancelled", got)
	}
}

func TestTrackerReusesObserverPerGroup(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001")
	seedPayment(t, mem, "P0001", "C0001", "O0001")
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{
		"status":     enum.OrderStatusCompleted,
		"payment_id": "P0001",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	tracker := NewTracker(svc, mem, time.Hour)
	defer tracker.Stop()

	if _, err := tracker.Refresh(ctx, "C0001", "P0001"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := tracker.Receive(ctx, "C0001", "P0001"); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusReceived {
		t.Fatalf("status = %q, want received", got)
	}
}

func TestTrackerScopesGroupsToTheirOwner(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001")
	seedPayment(t, mem, "P0001", "C0001", "O0001")
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{
		"status":     enum.OrderStatusCompleted,
		"payment_id": "P0001",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	tracker := NewTracker(svc, mem, time.Hour)
	defer tracker.Stop()

	// Another customer can neither read nor receive the group.
	if _, err := tracker.Refresh(ctx, "C0002", "P0001"); !errors.Is(err, ErrPaymentNotOwned) {
		t.Fatalf("foreign Refresh: got %v, want ErrPaymentNotOwned", err)
	}
	if err := tracker.Receive(ctx, "C0002", "P0001"); !errors.Is(err, ErrPaymentNotOwned) {
		t.Fatalf("foreign Receive: got %v, want ErrPaymentNotOwned", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusCompleted {
		t.Fatalf("status = %q, foreign receive must not write", got)
	}

	// Unknown groups are a not-found, owned groups and staff pass.
	if _, err := tracker.Refresh(ctx, "C0001", "P9999"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("unknown group: got %v, want ErrPaymentNotFound", err)
	}
	if _, err := tracker.Refresh(ctx, "", "P0001"); err != nil {
		t.Fatalf("unscoped Refresh: %v", err)
	}
	if _, err := tracker.Refresh(ctx, "C0001", "P0001"); err != nil {
		t.Fatalf("owner Refresh: %v", err)
	}
}

func TestMarkReceivedByRejectsForeignOrders(t *testing.T) {
	svc, mem := newStatusFixture(t)
	ctx := context.Background()

	seedOrders(t, mem, "C0001", "O0001")
	if err := svc.MarkComplete(ctx, []string{"O0001"}); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	if err := svc.MarkReceivedBy(ctx, "C0002", []string{"O0001"}); !errors.Is(err, ErrOrderNotOwned) {
		t.Fatalf("got %v, want ErrOrderNotOwned", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusCompleted {
		t.Fatalf("status = %q, foreign receive must not write", got)
	}

	if err := svc.MarkReceivedBy(ctx, "C0001", []string{"O0001"}); err != nil {
		t.Fatalf("owner MarkReceivedBy: %v", err)
	}
	if got := orderStatus(t, mem, "O0001"); got != enum.OrderStatusReceived {
		t.Fatalf("status = %q, want received", got)
	}
}
