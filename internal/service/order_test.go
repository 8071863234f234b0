package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
	"github.com/shopspring/decimal"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func nasiLemak(t *testing.T) model.Food {
	t.Helper()
	return model.Food{ID: "M0001", Name: "Nasi Lemak", Category: "Rice", Price: d(t, "10.00"), Available: true}
}

func newOrderFixture() (*OrderService, *store.Memory) {
	mem := store.NewMemory()
	return NewOrderService(mem, sequence.New(mem)), mem
}

func TestCheckoutValidatesInput(t *testing.T) {
	svc, _ := newOrderFixture()
	ctx := context.Background()

	line := model.CartItem{Food: model.Food{ID: "M0001", Price: decimal.NewFromInt(5)}, Quantity: 1}

	if _, err := svc.Checkout(ctx, "", []model.CartItem{line}); !errors.Is(err, ErrMissingUser) {
		t.Errorf("empty user: got %v, want ErrMissingUser", err)
	}
	if _, err := svc.Checkout(ctx, "C0001", nil); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("empty cart: got %v, want ErrEmptyCart", err)
	}

	bad := line
	bad.Quantity = 0
	if _, err := svc.Checkout(ctx, "C0001", []model.CartItem{bad}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: got %v, want ErrInvalidQuantity", err)
	}

	bad = line
	bad.Food = model.Food{}
	if _, err := svc.Checkout(ctx, "C0001", []model.CartItem{bad}); !errors.Is(err, ErrMissingFood) {
		t.Errorf("missing food: got %v, want ErrMissingFood", err)
	}
}

func TestCheckoutMintsSequentialOrderIDs(t *testing.T) {
	svc, _ := newOrderFixture()
	ctx := context.Background()

	lines := []model.CartItem{
		{Food: nasiLemak(t), Quantity: 1},
		{Food: nasiLemak(t), Quantity: 2},
		{Food: nasiLemak(t), Quantity: 3},
	}
	persisted, err := svc.Checkout(ctx, "C0001", lines)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	want := []string{"O0001", "O0002", "O0003"}
	for i, p := range persisted {
		if p.OrderID != want[i] {
			t.Errorf("order %d: ID %q, want %q", i, p.OrderID, want[i])
		}
		if p.Status != enum.OrderStatusPending {
			t.Errorf("order %d: status %q, want pending", i, p.Status)
		}
		if p.UserID != "C0001" {
			t.Errorf("order %d: user %q, want C0001", i, p.UserID)
		}
	}
}

func TestCheckoutRecomputesPricesServerSide(t *testing.T) {
	svc, _ := newOrderFixture()
	ctx := context.Background()

	line := model.CartItem{
		Food:     nasiLemak(t),
		Sauces:   []model.Option{{Name: "Sambal", Price: d(t, "1.50")}},
		AddOns:   []model.Option{{Name: "Fried Egg", Price: d(t, "2.00")}},
		Quantity: 2,
		TakeAway: true,
		// Client-supplied totals must be ignored.
		UnitPrice:  d(t, "0.01"),
		TotalPrice: d(t, "0.02"),
	}

	persisted, err := svc.Checkout(ctx, "C0001", []model.CartItem{line})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// 10.00 + 1.50 + 2.00 + 0.50 takeaway = 14.00 per unit, 28.00 total.
	if got := persisted[0].UnitPrice; !got.Equal(d(t, "14.00")) {
		t.Errorf("unit price = %s, want 14.00", got)
	}
	if got := persisted[0].TotalPrice; !got.Equal(d(t, "28.00")) {
		t.Errorf("total price = %s, want 28.00", got)
	}
}

func TestListPendingFiltersByStatus(t *testing.T) {
	svc, mem := newOrderFixture()
	ctx := context.Background()

	if _, err := svc.Checkout(ctx, "C0001", []model.CartItem{{Food: nasiLemak(t), Quantity: 1}}); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := svc.Checkout(ctx, "C0002", []model.CartItem{{Food: nasiLemak(t), Quantity: 1}}); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if err := mem.Update(ctx, enum.ColOrders, "O0002", map[string]any{"status": enum.OrderStatusCompleted}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].OrderID != "O0001" {
		t.Fatalf("pending = %+v, want just O0001", pending)
	}
}

func TestListByUserKeepsMintOrderPastPadWidth(t *testing.T) {
	svc, mem := newOrderFixture()
	ctx := context.Background()

	// The next mints are O9999 and O10000; a plain string sort would put
	// the longer ID first.
	if err := mem.Set(ctx, enum.ColCounters, enum.SeqOrders, model.Counter{Last: 9998}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Checkout(ctx, "C0001", []model.CartItem{{Food: nasiLemak(t), Quantity: 1}}); err != nil {
			t.Fatalf("Checkout %d: %v", i, err)
		}
	}

	orders, err := svc.ListByUser(ctx, "C0001")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].OrderID != "O9999" || orders[1].OrderID != "O10000" {
		t.Fatalf("order = [%s %s], want [O9999 O10000]", orders[0].OrderID, orders[1].OrderID)
	}
}

func TestSummaryExcludesPaidOrders(t *testing.T) {
	svc, mem := newOrderFixture()
	ctx := context.Background()

	lines := []model.CartItem{
		{Food: nasiLemak(t), Quantity: 1},
		{Food: nasiLemak(t), Quantity: 2},
	}
	if _, err := svc.Checkout(ctx, "C0001", lines); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if err := mem.Update(ctx, enum.ColOrders, "O0001", map[string]any{"payment_id": "P0001"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	items, subtotal, err := svc.Summary(ctx, "C0001")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(items) != 1 || items[0].OrderID != "O0002" {
		t.Fatalf("summary items = %+v, want just O0002", items)
	}
	if !subtotal.Equal(d(t, "20.00")) {
		t.Errorf("subtotal = %s, want 20.00", subtotal)
	}
}

func TestSummaryMergesSameFoodLines(t *testing.T) {
	svc, _ := newOrderFixture()
	ctx := context.Background()

	lines := []model.CartItem{
		{Food: nasiLemak(t), Quantity: 1},
		{Food: nasiLemak(t), Quantity: 2},
		{Food: nasiLemak(t), Quantity: 1, TakeAway: true},
	}
	if _, err := svc.Checkout(ctx, "C0001", lines); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	items, subtotal, err := svc.Summary(ctx, "C0001")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	// Dine-in lines collapse; the take-away line stays separate.
	if len(items) != 2 {
		t.Fatalf("got %d summary groups, want 2", len(items))
	}
	if items[0].Quantity != 3 {
		t.Errorf("merged quantity = %d, want 3", items[0].Quantity)
	}
	// 3 x 10.00 + 1 x 10.50 = 40.50
	if !subtotal.Equal(d(t, "40.50")) {
		t.Errorf("subtotal = %s, want 40.50", subtotal)
	}
}
