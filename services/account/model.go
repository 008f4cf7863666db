package account

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                  string          `gorm:"column:id;primaryKey" json:"id"`
	Email               string          `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name                string          `gorm:"column:name" json:"name"`
	Balance             decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0" json:"balance"`
	XP                  int64           `gorm:"column:xp;not null;default:0" json:"xp"`
	Level               int             `gorm:"column:level;not null;default:1" json:"level"`
	WheelSpinsAvailable int             `gorm:"column:wheel_spins_available;not null;default:0" json:"wheel_spins_available"`
	IsAdmin             bool            `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt           time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}
