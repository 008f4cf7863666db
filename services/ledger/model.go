package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	KindCredit          EntryKind = "credit"
	KindDebit           EntryKind = "debit"
	KindXP              EntryKind = "xp"
	KindSpinGrant       EntryKind = "spin_grant"
	KindSpinConsume     EntryKind = "spin_consume"
	KindBalanceOverride EntryKind = "balance_override"
	KindXPOverride      EntryKind = "xp_override"
	KindDiscountGrant   EntryKind = "discount_grant"
)

// Entry is one audited mutation of a user's balance, XP or spins. Entries
// of a user form a hash chain ordered by Sequence.
type Entry struct {
	ID           string          `gorm:"column:id;primaryKey" json:"id"`
	UserID       string          `gorm:"column:user_id;not null;uniqueIndex:idx_ledger_user_seq" json:"user_id"`
	Sequence     int64           `gorm:"column:sequence;not null;uniqueIndex:idx_ledger_user_seq" json:"sequence"`
	Kind         EntryKind       `gorm:"column:kind;not null" json:"kind"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null;default:0" json:"amount"`
	XPDelta      int64           `gorm:"column:xp_delta;not null;default:0" json:"xp_delta"`
	SpinsDelta   int             `gorm:"column:spins_delta;not null;default:0" json:"spins_delta"`
	BalanceAfter decimal.Decimal `gorm:"column:balance_after;type:decimal(20,2);not null;default:0" json:"balance_after"`
	XPAfter      int64           `gorm:"column:xp_after;not null;default:0" json:"xp_after"`
	LevelAfter   int             `gorm:"column:level_after;not null;default:1" json:"level_after"`
	SpinsAfter   int             `gorm:"column:spins_after;not null;default:0" json:"spins_after"`
	Reference    string          `gorm:"column:reference;index" json:"reference,omitempty"`
	Description  string          `gorm:"column:description" json:"description,omitempty"`
	PreviousHash string          `gorm:"column:previous_hash" json:"previous_hash"`
	Hash         string          `gorm:"column:hash" json:"hash"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Entry) TableName() string { return "ledger_entries" }

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":            e.ID,
		"user_id":       e.UserID,
		"sequence":      fmt.Sprintf("%d", e.Sequence),
		"kind":          string(e.Kind),
		"amount":        e.Amount.StringFixed(2),
		"xp_delta":      fmt.Sprintf("%d", e.XPDelta),
		"spins_delta":   fmt.Sprintf("%d", e.SpinsDelta),
		"balance_after": e.BalanceAfter.StringFixed(2),
		"xp_after":      fmt.Sprintf("%d", e.XPAfter),
		"level_after":   fmt.Sprintf("%d", e.LevelAfter),
		"spins_after":   fmt.Sprintf("%d", e.SpinsAfter),
		"reference":     e.Reference,
		"description":   e.Description,
		"created_at":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash": e.PreviousHash,
	}
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// DiscountGrant records a discount earned from a reward or a wheel prize.
// Grants are informational; checkout does not apply them.
type DiscountGrant struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	UserID    string          `gorm:"column:user_id;not null;index" json:"user_id"`
	Percent   decimal.Decimal `gorm:"column:percent;type:decimal(5,2);not null" json:"percent"`
	Source    string          `gorm:"column:source" json:"source"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (DiscountGrant) TableName() string { return "discount_grants" }

// Memo ties an entry to the operation that caused it, e.g. "order:123".
type Memo struct {
	Reference   string
	Description string
}

// LevelUpEvent is published after the transaction that raised the level commits.
type LevelUpEvent struct {
	UserID       string `json:"user_id"`
	OldLevel     int    `json:"old_level"`
	NewLevel     int    `json:"new_level"`
	SpinsGranted int    `json:"spins_granted"`
	Reference    string `json:"reference,omitempty"`
}

// XPResult is the outcome of ApplyXP.
type XPResult struct {
	XPGained     int64 `json:"xp_gained"`
	OldLevel     int   `json:"old_level"`
	NewLevel     int   `json:"new_level"`
	LevelUp      bool  `json:"level_up"`
	SpinsGranted int   `json:"spins_granted"`
}

type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Entries int    `json:"entries"`
	BadID   string `json:"bad_entry_id,omitempty"`
}
