package wheel

import (
	"math"
	"time"

	"tsmarket/services/ledger"

	"github.com/shopspring/decimal"
)

// weightScale turns a probability into integer micro-weights so the draw
// never compares floats.
const weightScale = 1_000_000

type PrizeType string

const (
	PrizeCoins    PrizeType = "coins"
	PrizeXP       PrizeType = "xp"
	PrizeDiscount PrizeType = "discount"
)

func (t PrizeType) effect() (ledger.EffectType, bool) {
	switch t {
	case PrizeCoins:
		return ledger.EffectCoins, true
	case PrizeXP:
		return ledger.EffectXP, true
	case PrizeDiscount:
		return ledger.EffectDiscount, true
	default:
		return "", false
	}
}

type WheelPrize struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	PrizeType   PrizeType       `gorm:"column:prize_type;not null" json:"prize_type"`
	Value       decimal.Decimal `gorm:"column:value;type:decimal(20,2);not null" json:"value"`
	Probability float64         `gorm:"column:probability;not null" json:"probability"`
	Color       string          `gorm:"column:color" json:"color"`
	Position    int             `gorm:"column:position;not null;index" json:"position"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (WheelPrize) TableName() string { return "wheel_prizes" }

// Weight is the probability in micro units, rounded half away from zero.
func (p *WheelPrize) Weight() int64 {
	if p.Probability <= 0 {
		return 0
	}
	return int64(math.Round(p.Probability * weightScale))
}

// SpinResult records every draw so outcomes can be audited after the fact.
type SpinResult struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	UserID      string          `gorm:"column:user_id;index;not null" json:"user_id"`
	PrizeID     string          `gorm:"column:prize_id;not null" json:"prize_id"`
	PrizeName   string          `gorm:"column:prize_name" json:"prize_name"`
	PrizeType   PrizeType       `gorm:"column:prize_type;not null" json:"prize_type"`
	Value       decimal.Decimal `gorm:"column:value;type:decimal(20,2);not null" json:"value"`
	Draw        int64           `gorm:"column:draw;not null" json:"draw"`
	TotalWeight int64           `gorm:"column:total_weight;not null" json:"total_weight"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (SpinResult) TableName() string { return "wheel_spins" }

type PrizeRequest struct {
	Name        string          `json:"name" binding:"required"`
	PrizeType   PrizeType       `json:"prize_type" binding:"required"`
	Value       decimal.Decimal `json:"value"`
	Probability float64         `json:"probability" binding:"gte=0,lte=1"`
	Color       string          `json:"color"`
	Position    *int            `json:"position"`
}

type SpinOutcome struct {
	Prize          *WheelPrize          `json:"prize"`
	SpinsRemaining int                  `json:"spins_remaining"`
	Effect         *ledger.EffectResult `json:"effect"`
	Audit          *SpinResult          `json:"audit"`
}
