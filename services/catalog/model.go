package catalog

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Category struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

// Product prices are in coins; XPReward is granted per unit bought.
type Product struct {
	ID          string                      `gorm:"column:id;primaryKey" json:"id"`
	CategoryID  string                      `gorm:"column:category_id;index" json:"category_id"`
	Name        string                      `gorm:"column:name;not null" json:"name"`
	Description string                      `gorm:"column:description" json:"description"`
	Price       decimal.Decimal             `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	XPReward    int64                       `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	Sizes       datatypes.JSONSlice[string] `gorm:"column:sizes" json:"sizes"`
	ImageURL    string                      `gorm:"column:image_url" json:"image_url,omitempty"`
	Stock       int                         `gorm:"column:stock;not null;default:0" json:"stock"`
	IsActive    bool                        `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt   time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// AcceptsSize reports whether size may be ordered. Products without sizes
// only accept an empty size.
func (p *Product) AcceptsSize(size string) bool {
	if len(p.Sizes) == 0 {
		return size == ""
	}
	return slices.Contains([]string(p.Sizes), size)
}

func sizesOf(sizes []string) datatypes.JSONSlice[string] {
	if sizes == nil {
		return datatypes.JSONSlice[string]{}
	}
	return sizes
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

type ProductRequest struct {
	CategoryID  string          `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	XPReward    int64           `json:"xp_reward" binding:"gte=0"`
	Sizes       []string        `json:"sizes"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock" binding:"gte=0"`
	IsActive    *bool           `json:"is_active"`
}

type ProductFilter struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	MinXP    int64  `form:"min_xp"`
	Size     string `form:"size"`
	// IncludeInactive is only honoured for admin listings.
	IncludeInactive bool `form:"-"`
}
