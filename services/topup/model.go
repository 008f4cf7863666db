package topup

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Transition returns the status a request moves to when target is applied.
// Only pending requests move; approved and rejected are terminal.
func (s RequestStatus) Transition(target RequestStatus) (RequestStatus, error) {
	switch s {
	case StatusPending:
		switch target {
		case StatusApproved, StatusRejected:
			return target, nil
		default:
			return "", ErrInvalidTransition
		}
	case StatusApproved, StatusRejected:
		return "", ErrNotPending
	default:
		return "", ErrInvalidTransition
	}
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

type TopupRequest struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	Code        string          `gorm:"column:code;uniqueIndex;not null" json:"code"`
	UserID      string          `gorm:"column:user_id;index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	ReceiptURL  string          `gorm:"column:receipt_url;not null" json:"receipt_url"`
	Status      RequestStatus   `gorm:"column:status;index;not null" json:"status"`
	AdminNote   string          `gorm:"column:admin_note" json:"admin_note,omitempty"`
	ProcessedBy string          `gorm:"column:processed_by" json:"processed_by,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	ProcessedAt *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (TopupRequest) TableName() string { return "topup_requests" }

// TopupCode is a one-shot voucher worth Amount coins.
type TopupCode struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	Code      string          `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	IsUsed    bool            `gorm:"column:is_used;not null;index" json:"is_used"`
	UsedBy    string          `gorm:"column:used_by" json:"used_by,omitempty"`
	UsedAt    *time.Time      `gorm:"column:used_at" json:"used_at,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (TopupCode) TableName() string { return "topup_codes" }

type Source string

const (
	SourceCode    Source = "code"
	SourceRequest Source = "request"
)

// History is the per-user trail of credited top-ups.
type History struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	UserID    string          `gorm:"column:user_id;index;not null" json:"user_id"`
	Source    Source          `gorm:"column:source;not null" json:"source"`
	Reference string          `gorm:"column:reference;not null" json:"reference"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (History) TableName() string { return "topup_history" }

const settingsID = "default"

// PaymentSettings tells users where to send money before submitting a
// request. There is a single row.
type PaymentSettings struct {
	ID         string    `gorm:"column:id;primaryKey" json:"-"`
	CardNumber string    `gorm:"column:card_number" json:"card_number"`
	CardHolder string    `gorm:"column:card_holder" json:"card_holder"`
	Info       string    `gorm:"column:info" json:"info"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PaymentSettings) TableName() string { return "payment_settings" }

// Event is published after a request is approved or rejected.
type Event struct {
	RequestID string          `json:"request_id"`
	Code      string          `json:"code"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    RequestStatus   `json:"status"`
	AdminNote string          `json:"admin_note,omitempty"`
}

type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

type RedeemResult struct {
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type SubmitRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	ReceiptURL string          `json:"receipt_url"`
}

type RejectRequest struct {
	Note string `json:"note"`
}

type CreateCodeRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type SettingsRequest struct {
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	Info       string `json:"info"`
}

type ListFilter struct {
	Status RequestStatus `form:"status"`
}
