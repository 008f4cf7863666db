package reward

import (
	"time"

	"tsmarket/services/ledger"

	"github.com/shopspring/decimal"
)

// ExclusiveWindow is how many levels an exclusive reward stays claimable,
// starting at its required level.
const ExclusiveWindow = 10

type Type string

const (
	TypeCoins    Type = "coins"
	TypeXPBoost  Type = "xp_boost"
	TypeDiscount Type = "discount"
)

func (t Type) effect() (ledger.EffectType, bool) {
	switch t {
	case TypeCoins:
		return ledger.EffectCoins, true
	case TypeXPBoost:
		return ledger.EffectXP, true
	case TypeDiscount:
		return ledger.EffectDiscount, true
	default:
		return "", false
	}
}

type Reward struct {
	ID            string          `gorm:"column:id;primaryKey" json:"id"`
	LevelRequired int             `gorm:"column:level_required;uniqueIndex;not null" json:"level_required"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Description   string          `gorm:"column:description" json:"description"`
	RewardType    Type            `gorm:"column:reward_type;not null" json:"reward_type"`
	Value         decimal.Decimal `gorm:"column:value;type:decimal(20,2);not null" json:"value"`
	IsExclusive   bool            `gorm:"column:is_exclusive;not null" json:"is_exclusive"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Reward) TableName() string { return "rewards" }

// Open reports whether level is inside the reward's claimable range.
func (r *Reward) Open(level int) bool {
	if level < r.LevelRequired {
		return false
	}
	return !r.IsExclusive || level < r.LevelRequired+ExclusiveWindow
}

// UserRewardClaim is unique per user and level; the constraint is what
// makes a claim happen at most once.
type UserRewardClaim struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;not null;uniqueIndex:idx_reward_claim_user_level" json:"user_id"`
	LevelRequired int       `gorm:"column:level_required;not null;uniqueIndex:idx_reward_claim_user_level" json:"level_required"`
	RewardID      string    `gorm:"column:reward_id;not null" json:"reward_id"`
	ClaimedAt     time.Time `gorm:"column:claimed_at" json:"claimed_at"`
}

func (UserRewardClaim) TableName() string { return "user_reward_claims" }

type View struct {
	*Reward
	CanClaim  bool `json:"can_claim"`
	IsClaimed bool `json:"is_claimed"`
	// Forfeited is set for exclusive rewards the user leveled past unclaimed.
	Forfeited bool `json:"forfeited"`
}

type ClaimResult struct {
	Reward *Reward              `json:"reward"`
	Effect *ledger.EffectResult `json:"effect"`
}

type CreateRequest struct {
	LevelRequired int             `json:"level_required" binding:"required,gte=1"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	RewardType    Type            `json:"reward_type" binding:"required"`
	Value         decimal.Decimal `json:"value"`
	IsExclusive   bool            `json:"is_exclusive"`
}
