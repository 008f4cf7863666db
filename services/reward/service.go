package reward

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/account"
	"tsmarket/services/ledger"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node     *snowflake.Node
	ledger   *ledger.Service
	accounts *account.Service

	rewards repository.Repository[Reward]
	claims  repository.Repository[UserRewardClaim]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Ledger   *ledger.Service
	Accounts *account.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		ledger:   p.Ledger,
		accounts: p.Accounts,
		rewards:  repository.ProvideStore[Reward](p.DB),
		claims:   repository.ProvideStore[UserRewardClaim](p.DB),
	}
}

var byLevel = option.WithSortBy(option.QuerySortBy{
	SortBy:  "level_required",
	OrderBy: "asc",
	Allow:   map[string]bool{"level_required": true},
})

func (s *Service) List(ctx context.Context) ([]*Reward, error) {
	rewards, err := s.rewards.Find(ctx, &Reward{}, byLevel)
	if err != nil {
		return nil, errutil.Internal("failed to list rewards", err)
	}
	return rewards, nil
}

// ListForUser derives claimability from the stored user and claims on every
// call.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*View, error) {
	user, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := s.claims.Find(ctx, &UserRewardClaim{UserID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to list claims", err)
	}
	claimed := make(map[int]bool, len(claims))
	for _, c := range claims {
		claimed[c.LevelRequired] = true
	}

	views := make([]*View, 0, len(rewards))
	for _, r := range rewards {
		isClaimed := claimed[r.LevelRequired]
		views = append(views, &View{
			Reward:    r,
			CanClaim:  !isClaimed && r.Open(user.Level),
			IsClaimed: isClaimed,
			Forfeited: !isClaimed && r.IsExclusive && user.Level >= r.LevelRequired+ExclusiveWindow,
		})
	}
	return views, nil
}

func (s *Service) findByLevel(ctx context.Context, level int) (*Reward, error) {
	reward, err := s.rewards.FindOne(ctx, &Reward{LevelRequired: level})
	if err != nil {
		return nil, errutil.Internal("failed to load reward", err)
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// Claim re-checks eligibility against the locked user row, records the claim
// and applies the reward effect in one transaction.
func (s *Service) Claim(ctx context.Context, userID string, level int) (*ClaimResult, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("user_id", userID), zap.Int("level_required", level))

	reward, err := s.findByLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	effect, ok := reward.RewardType.effect()
	if !ok {
		zapLog.Error("reward has unknown type", zap.String("reward_type", string(reward.RewardType)))
		return nil, errutil.WithMessage(ErrInvalidReward, "reward type "+string(reward.RewardType)+" is not supported")
	}

	var result ClaimResult
	err = s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		user, err := l.Lock(ctx, userID)
		if err != nil {
			return err
		}

		claims := s.claims.WithTrx(tx)
		existing, err := claims.FindOne(ctx, &UserRewardClaim{UserID: userID, LevelRequired: level})
		if err != nil {
			return errutil.Internal("failed to load claim", err)
		}
		if existing != nil {
			return ErrAlreadyClaimed
		}
		if !reward.Open(user.Level) {
			return ErrNotEligible
		}

		if err := claims.Create(ctx, &UserRewardClaim{
			ID:            s.node.Generate().String(),
			UserID:        userID,
			LevelRequired: level,
			RewardID:      reward.ID,
			ClaimedAt:     time.Now().UTC(),
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyClaimed
			}
			return errutil.Internal("failed to record claim", err)
		}

		memo := ledger.Memo{
			Reference:   fmt.Sprintf("reward:L%d", level),
			Description: reward.Name,
		}
		applied, err := l.ApplyEffect(ctx, userID, effect, reward.Value, memo)
		if err != nil {
			return err
		}

		result = ClaimResult{Reward: reward, Effect: applied}
		return nil
	})
	if err != nil {
		zapLog.Warn("reward claim rejected", zap.Error(err))
		return nil, err
	}

	zapLog.Info("reward claimed", zap.String("reward_type", string(reward.RewardType)))
	return &result, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Reward, error) {
	if strings.TrimSpace(req.Name) == "" || req.LevelRequired < 1 {
		return nil, ErrInvalidReward
	}
	effect, ok := req.RewardType.effect()
	if !ok {
		return nil, errutil.WithMessage(ErrInvalidReward, "reward_type must be coins, xp_boost or discount")
	}
	if err := ledger.ValidateEffect(effect, req.Value); err != nil {
		return nil, errutil.Wrap(ErrInvalidReward, err)
	}

	reward := &Reward{
		ID:            s.node.Generate().String(),
		LevelRequired: req.LevelRequired,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		RewardType:    req.RewardType,
		Value:         req.Value,
		IsExclusive:   req.IsExclusive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.rewards.Create(ctx, reward); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLevelTaken
		}
		return nil, errutil.Internal("failed to create reward", err)
	}

	logger.FromContext(ctx).Info("reward created", zap.String("reward_id", reward.ID), zap.Int("level_required", reward.LevelRequired))
	return reward, nil
}

// Delete removes a reward. Existing claims stay as history.
func (s *Service) Delete(ctx context.Context, rewardID string) error {
	reward, err := s.rewards.FindOne(ctx, &Reward{ID: rewardID})
	if err != nil {
		return errutil.Internal("failed to load reward", err)
	}
	if reward == nil {
		return ErrRewardNotFound
	}

	if err := s.rewards.Delete(ctx, rewardID); err != nil {
		return errutil.Internal("failed to delete reward", err)
	}
	return nil
}
