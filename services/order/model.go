package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// CanTransition reports whether an order may move from s to next. Orders
// only ever move forward one step.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusCompleted:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	case StatusDelivered:
		return false
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

type Order struct {
	ID              string          `gorm:"column:id;primaryKey" json:"id"`
	Code            string          `gorm:"column:code;uniqueIndex;not null" json:"code"`
	UserID          string          `gorm:"column:user_id;index;not null" json:"user_id"`
	Total           decimal.Decimal `gorm:"column:total;type:decimal(20,2);not null" json:"total"`
	TotalXP         int64           `gorm:"column:total_xp;not null" json:"total_xp"`
	DeliveryAddress string          `gorm:"column:delivery_address;not null" json:"delivery_address"`
	Status          Status          `gorm:"column:status;index;not null" json:"status"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots the product at checkout time.
type OrderItem struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	OrderID   string          `gorm:"column:order_id;index;not null" json:"-"`
	Position  int             `gorm:"column:position;not null" json:"position"`
	ProductID string          `gorm:"column:product_id;not null" json:"product_id"`
	Name      string          `gorm:"column:name" json:"name"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	Size      string          `gorm:"column:size" json:"size,omitempty"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(20,2);not null" json:"unit_price"`
	XPReward  int64           `gorm:"column:xp_reward;not null" json:"xp_reward"`
}

func (OrderItem) TableName() string { return "order_items" }

type CartItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type CheckoutRequest struct {
	Items           []CartItem `json:"items"`
	DeliveryAddress string     `json:"delivery_address"`
}

type CheckoutResult struct {
	Order        *Order          `json:"order"`
	XPGained     int64           `json:"xp_gained"`
	LevelUp      bool            `json:"level_up"`
	NewLevel     int             `json:"new_level"`
	SpinsGranted int             `json:"spins_granted"`
	Balance      decimal.Decimal `json:"balance"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

type ListFilter struct {
	Status Status `form:"status"`
}

type Stats struct {
	Users    int64           `json:"users"`
	Orders   int64           `json:"orders"`
	Products int64           `json:"products"`
	Revenue  decimal.Decimal `json:"revenue"`
}
