package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 商品の外形寸法（cm）
type Dimensions struct {
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Thickness float64 `json:"thickness"`
}

// 3辺とも正の値か
func (d Dimensions) Valid() bool {
	return d.Length > 0 && d.Width > 0 && d.Thickness > 0
}

// IsActive=falseが論理削除。行は消さない。
type Product struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type       string          `gorm:"type:varchar(100);not null;index" json:"type"`
	Category   string          `gorm:"type:varchar(100);not null;index" json:"category"`
	Brand      string          `gorm:"type:varchar(100);not null" json:"brand"`
	Model      string          `gorm:"type:varchar(150);not null" json:"model"`
	Dimensions Dimensions      `gorm:"type:jsonb;serializer:json;not null" json:"dimensions"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL   string          `gorm:"type:varchar(500);not null" json:"image_url"`
	Features   string          `gorm:"type:text;not null" json:"features"`
	Stock      int64           `gorm:"not null;check:stock >= 0" json:"stock"`
	IsActive   bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 表示名（ブランド＋モデル）
func (p Product) DisplayName() string {
	return strings.TrimSpace(p.Brand + " " + p.Model)
}
