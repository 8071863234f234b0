package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rasaeats/api/internal/cart"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/metrics"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
	"github.com/shopspring/decimal"
)

// OrderService persists session carts as orders and serves the customer and
// staff order views.
type OrderService struct {
	store store.Store
	seq   *sequence.Sequencer
	now   func() time.Time
}

// NewOrderService creates an OrderService.
func NewOrderService(s store.Store, seq *sequence.Sequencer) *OrderService {
	return &OrderService{store: s, seq: seq, now: time.Now}
}

// Checkout validates and persists every cart line. Each line gets its order
// ID minted and its document written in one transaction, so a crash can
// never leave a minted ID without an order. Prices are recomputed
// server-side from the line's snapshot; the client's totals are not
// trusted.
func (s *OrderService) Checkout(ctx context.Context, userID string, lines []model.CartItem) ([]model.CartItem, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if line.Food.ID == "" {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMissingFood)
		}
	}

	persisted := make([]model.CartItem, 0, len(lines))
	for i, line := range lines {
		line.UserID = userID
		line.Status = enum.OrderStatusPending
		line.Timestamp = s.now()
		line.PaymentID = ""
		line.UnitPrice = model.LineUnitPrice(line.Food, line.Sauces, line.AddOns, line.TakeAway)
		line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		stored := line
		err := s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
			id, err := sequence.NextInTx(ctx, tx, enum.SeqOrders, enum.PrefixOrder, enum.IDWidth)
			if err != nil {
				return err
			}
			stored = line
			stored.OrderID = id
			return tx.Set(ctx, enum.ColOrders, id, stored)
		})
		if err != nil {
			return nil, fmt.Errorf("item[%d]: persist order: %w", i, err)
		}
		metrics.OrdersCreated.Inc()
		persisted = append(persisted, stored)
	}
	return persisted, nil
}

// ListByUser returns a user's orders, oldest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.CartItem, error) {
	var orders []model.CartItem
	err := s.store.Query(ctx, enum.ColOrders, []store.Filter{store.Where("user_id", userID)}, &orders)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	sortByOrderID(orders)
	return orders, nil
}

// ListPending returns every pending order across users, for the staff view.
func (s *OrderService) ListPending(ctx context.Context) ([]model.CartItem, error) {
	var orders []model.CartItem
	err := s.store.Query(ctx, enum.ColOrders,
		[]store.Filter{store.Where("status", enum.OrderStatusPending)}, &orders)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	sortByOrderID(orders)
	return orders, nil
}

// ListByPayment returns the orders settled under one payment.
func (s *OrderService) ListByPayment(ctx context.Context, paymentID string) ([]model.CartItem, error) {
	var orders []model.CartItem
	err := s.store.Query(ctx, enum.ColOrders,
		[]store.Filter{store.Where("payment_id", paymentID)}, &orders)
	if err != nil {
		return nil, fmt.Errorf("list orders by payment: %w", err)
	}
	sortByOrderID(orders)
	return orders, nil
}

// Summary groups a user's persisted orders for the checkout screen.
func (s *OrderService) Summary(ctx context.Context, userID string) ([]model.CartItem, decimal.Decimal, error) {
	orders, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	unpaid := orders[:0:0]
	for _, o := range orders {
		if o.PaymentID == "" {
			unpaid = append(unpaid, o)
		}
	}
	grouped := cart.Group(unpaid)
	return grouped, cart.Subtotal(grouped), nil
}

func sortByOrderID(orders []model.CartItem) {
	sort.Slice(orders, func(i, j int) bool { return sequence.IDLess(orders[i].OrderID, orders[j].OrderID) })
}
