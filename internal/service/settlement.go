package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/metrics"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SettlementService runs the post-payment bookkeeping: the payment record,
// the order linkage, loyalty points, and reward stamping.
type SettlementService struct {
	store store.Store
	seq   *sequence.Sequencer
	now   func() time.Time
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(s store.Store, seq *sequence.Sequencer) *SettlementService {
	return &SettlementService{store: s, seq: seq, now: time.Now}
}

// Settle records a successful payment. The payment document and the
// payment_id stamp on every referenced order commit in one transaction; if
// that transaction fails nothing is recorded. Points (floor of the amount,
// one per whole currency unit) and reward stamping run after the payment
// commits — if either fails it is queued as a settlement task and the
// returned error wraps ErrBookkeepingPending, never silently dropped.
func (s *SettlementService) Settle(ctx context.Context, userID string, orderIDs []string, total decimal.Decimal, method, phone string) (string, error) {
	if userID == "" {
		return "", ErrMissingUser
	}
	if len(orderIDs) == 0 {
		return "", ErrEmptyOrders
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return "", ErrInvalidAmount
	}
	if !isValidPaymentMethod(method) {
		return "", ErrInvalidMethod
	}

	var paymentID string
	err := s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		pid, err := sequence.NextInTx(ctx, tx, enum.SeqPayments, enum.PrefixPayment, enum.IDWidth)
		if err != nil {
			return err
		}

		for _, oid := range orderIDs {
			var order model.CartItem
			if err := tx.Get(ctx, enum.ColOrders, oid, &order); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrOrderNotFound, oid)
				}
				return fmt.Errorf("get order %s: %w", oid, err)
			}
			if order.UserID != userID {
				return fmt.Errorf("%w: %s", ErrOrderNotOwned, oid)
			}
			if err := tx.Update(ctx, enum.ColOrders, oid, map[string]any{"payment_id": pid}); err != nil {
				return fmt.Errorf("stamp order %s: %w", oid, err)
			}
		}

		payment := model.Payment{
			PaymentID:       pid,
			OrderIDs:        orderIDs,
			TotalPrice:      total,
			PaymentMethod:   method,
			TransactionDate: s.now(),
			Phone:           phone,
			UserID:          userID,
		}
		if err := tx.Set(ctx, enum.ColPayments, pid, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		paymentID = pid
		return nil
	})
	if err != nil {
		metrics.Settlements.WithLabelValues("failed").Inc()
		return "", err
	}
	metrics.Settlements.WithLabelValues("ok").Inc()

	earned := total.Floor().IntPart()

	pointsErr := s.awardPoints(ctx, userID, earned)
	rewardsErr := s.stampRewards(ctx, userID, paymentID)
	if pointsErr == nil && rewardsErr == nil {
		return paymentID, nil
	}

	// Payment is already durable; queue the failed steps for the sweeper.
	task := model.SettlementTask{
		ID:           uuid.NewString(),
		PaymentID:    paymentID,
		UserID:       userID,
		Points:       earned,
		AwardPoints:  pointsErr != nil,
		StampRewards: rewardsErr != nil,
		CreatedAt:    s.now(),
	}
	if err := s.store.Set(ctx, enum.ColTasks, task.ID, task); err != nil {
		logrus.WithError(err).WithField("payment_id", paymentID).
			Error("settlement bookkeeping failed and task enqueue failed")
		return paymentID, fmt.Errorf("%w: enqueue failed: %v", ErrBookkeepingPending, err)
	}
	logrus.WithFields(logrus.Fields{
		"payment_id":    paymentID,
		"award_points":  task.AwardPoints,
		"stamp_rewards": task.StampRewards,
	}).Warn("settlement bookkeeping queued for retry")
	return paymentID, fmt.Errorf("%w", ErrBookkeepingPending)
}

// RetryTask re-runs the queued bookkeeping for one settlement task and
// deletes the task on success. Used by the reconciliation sweeper.
func (s *SettlementService) RetryTask(ctx context.Context, task model.SettlementTask) error {
	metrics.SettlementRetries.Inc()

	if task.AwardPoints {
		if err := s.awardPoints(ctx, task.UserID, task.Points); err != nil {
			return fmt.Errorf("retry points for %s: %w", task.PaymentID, err)
		}
		task.AwardPoints = false
	}
	if task.StampRewards {
		if err := s.stampRewards(ctx, task.UserID, task.PaymentID); err != nil {
			// Persist partial progress so points are not awarded twice.
			task.Attempts++
			if uerr := s.store.Set(ctx, enum.ColTasks, task.ID, task); uerr != nil {
				return fmt.Errorf("retry rewards for %s: %w (task update failed: %v)", task.PaymentID, err, uerr)
			}
			return fmt.Errorf("retry rewards for %s: %w", task.PaymentID, err)
		}
	}
	return s.store.Delete(ctx, enum.ColTasks, task.ID)
}

// ListPayments returns a user's payments, oldest first.
func (s *SettlementService) ListPayments(ctx context.Context, userID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := s.store.Query(ctx, enum.ColPayments, []store.Filter{store.Where("user_id", userID)}, &payments)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	sort.Slice(payments, func(i, j int) bool { return sequence.IDLess(payments[i].PaymentID, payments[j].PaymentID) })
	return payments, nil
}

// awardPoints adds earned points to the profile balance with an atomic
// increment; concurrent settlements never lose updates.
func (s *SettlementService) awardPoints(ctx context.Context, userID string, earned int64) error {
	if earned == 0 {
		return nil
	}
	if err := s.store.Increment(ctx, enum.ColProfiles, userID, "points", earned); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
		}
		return fmt.Errorf("award points: %w", err)
	}
	return nil
}

// stampRewards marks the user's currently-redeemed, unpaid rewards as paid
// under the given payment.
func (s *SettlementService) stampRewards(ctx context.Context, userID, paymentID string) error {
	var rewards []model.RewardItem
	err := s.store.Query(ctx, enum.ColRewards, []store.Filter{
		store.Where("user_id", userID),
		store.Where("is_redeemed", true),
		store.Where("is_paid", false),
	}, &rewards)
	if err != nil {
		return fmt.Errorf("query rewards: %w", err)
	}
	for _, r := range rewards {
		err := s.store.Update(ctx, enum.ColRewards, r.ID, map[string]any{
			"is_paid":    true,
			"payment_id": paymentID,
		})
		if err != nil {
			return fmt.Errorf("stamp reward %s: %w", r.ID, err)
		}
	}
	return nil
}

func isValidPaymentMethod(method string) bool {
	switch method {
	case enum.PaymentMethodCash, enum.PaymentMethodBank,
		enum.PaymentMethodEWallet, enum.PaymentMethodCard:
		return true
	}
	return false
}
