package ledger

import (
	"context"
	"fmt"

	"tsmarket/pkg/errutil"
	"tsmarket/services/leveling"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EffectType is what a reward or wheel prize does to the winner.
type EffectType string

const (
	EffectCoins    EffectType = "coins"
	EffectXP       EffectType = "xp"
	EffectDiscount EffectType = "discount"
)

var ErrUnknownEffect = errutil.BadRequest("unknown reward effect", nil, errutil.WithReason("unknown_effect"))

type EffectResult struct {
	Balance  decimal.Decimal `json:"balance"`
	Spins    int             `json:"spins_available"`
	XP       *XPResult       `json:"xp,omitempty"`
	Discount *DiscountGrant  `json:"discount,omitempty"`
}

// ValidateEffect checks value against what t accepts: positive coins, a
// positive whole number of XP, or a discount percent in (0, 100].
func ValidateEffect(t EffectType, value decimal.Decimal) error {
	if !value.IsPositive() {
		return errutil.WithMessage(ErrInvalidAmount, "value must be greater than zero")
	}
	switch t {
	case EffectCoins:
		return nil
	case EffectXP:
		if !value.Equal(value.Truncate(0)) {
			return errutil.WithMessage(ErrInvalidXP, "xp value must be a whole number")
		}
		if value.GreaterThan(decimal.NewFromInt(leveling.MaxXP)) {
			return errutil.WithMessage(ErrInvalidXP, fmt.Sprintf("xp value must not exceed %d", leveling.MaxXP))
		}
		return nil
	case EffectDiscount:
		if value.GreaterThan(decimal.NewFromInt(100)) {
			return errutil.WithMessage(ErrInvalidAmount, "discount must not exceed 100 percent")
		}
		return nil
	default:
		return ErrUnknownEffect
	}
}

// ApplyEffect credits coins, applies XP or records a discount grant.
func (s *Service) ApplyEffect(ctx context.Context, userID string, t EffectType, value decimal.Decimal, memo Memo) (*EffectResult, error) {
	if err := ValidateEffect(t, value); err != nil {
		return nil, err
	}

	var result EffectResult
	err := s.Transaction(ctx, func(_ *gorm.DB, l *Service) error {
		switch t {
		case EffectCoins:
			if _, err := l.Credit(ctx, userID, value, memo); err != nil {
				return err
			}
		case EffectXP:
			xp, err := l.ApplyXP(ctx, userID, value.IntPart(), memo)
			if err != nil {
				return err
			}
			result.XP = xp
		case EffectDiscount:
			grant, err := l.GrantDiscount(ctx, userID, value, memo)
			if err != nil {
				return err
			}
			result.Discount = grant
		}

		user, err := l.Lock(ctx, userID)
		if err != nil {
			return err
		}
		result.Balance = user.Balance
		result.Spins = user.WheelSpinsAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
