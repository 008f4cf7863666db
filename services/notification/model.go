package notification

import (
	"time"

	"gorm.io/datatypes"
)

type Kind string

const (
	KindLevelUp        Kind = "level_up"
	KindTopupProcessed Kind = "topup_processed"
)

// Notification is an in-app message for one user. DedupeKey makes task
// retries land on the same row.
type Notification struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;index;not null" json:"user_id"`
	Kind      Kind           `gorm:"column:kind;not null" json:"kind"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Body      string         `gorm:"column:body" json:"body"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	DedupeKey string         `gorm:"column:dedupe_key;uniqueIndex;not null" json:"-"`
	ReadAt    *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

type ListFilter struct {
	Unread bool `form:"unread"`
}

type UnreadCount struct {
	Unread int64 `json:"unread"`
}
