package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
)

// RewardService manages loyalty rewards. Redemption spends points inside a
// transaction; settlement later marks redeemed rewards paid.
type RewardService struct {
	store store.Store
	seq   *sequence.Sequencer
}

// NewRewardService creates a RewardService.
func NewRewardService(s store.Store, seq *sequence.Sequencer) *RewardService {
	return &RewardService{store: s, seq: seq}
}

// Create offers a reward to a user. Staff operation.
func (s *RewardService) Create(ctx context.Context, userID, name, condition string, pointsRequired int64) (model.RewardItem, error) {
	if userID == "" {
		return model.RewardItem{}, ErrMissingUser
	}
	if name == "" {
		return model.RewardItem{}, ErrMissingName
	}
	if pointsRequired < 0 {
		return model.RewardItem{}, ErrInvalidAmount
	}
	reward := model.RewardItem{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		Condition:      condition,
		PointsRequired: pointsRequired,
	}
	if err := s.store.Set(ctx, enum.ColRewards, reward.ID, reward); err != nil {
		return model.RewardItem{}, fmt.Errorf("create reward: %w", err)
	}
	return reward, nil
}

// List returns a user's rewards.
func (s *RewardService) List(ctx context.Context, userID string) ([]model.RewardItem, error) {
	var rewards []model.RewardItem
	err := s.store.Query(ctx, enum.ColRewards, []store.Filter{store.Where("user_id", userID)}, &rewards)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].ID < rewards[j].ID })
	return rewards, nil
}

// Redeem spends points on a reward. The points check, the balance deduction
// and the redemption flag commit atomically; a concurrent redemption
// spending the same points conflicts and is retried through the bounded
// transaction helper before surfacing.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string) (model.RewardItem, error) {
	var redeemed model.RewardItem
	err := s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		var reward model.RewardItem
		if err := tx.Get(ctx, enum.ColRewards, rewardID, &reward); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrRewardNotFound, rewardID)
			}
			return fmt.Errorf("get reward: %w", err)
		}
		if reward.UserID != userID {
			return fmt.Errorf("%w: %s", ErrRewardNotFound, rewardID)
		}
		if reward.IsRedeemed {
			return fmt.Errorf("%w: %s", ErrAlreadyRedeemed, rewardID)
		}

		var profile model.Profile
		if err := tx.Get(ctx, enum.ColProfiles, userID, &profile); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
			}
			return fmt.Errorf("get profile: %w", err)
		}
		if profile.Points < reward.PointsRequired {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, profile.Points, reward.PointsRequired)
		}

		if err := tx.Update(ctx, enum.ColProfiles, userID, map[string]any{
			"points": profile.Points - reward.PointsRequired,
		}); err != nil {
			return fmt.Errorf("deduct points: %w", err)
		}

		reward.IsRedeemed = true
		redeemed = reward
		return tx.Set(ctx, enum.ColRewards, rewardID, reward)
	})
	if err != nil {
		return model.RewardItem{}, err
	}
	return redeemed, nil
}
