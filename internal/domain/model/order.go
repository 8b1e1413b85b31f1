package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 作成後は変更しない
type Order struct {
	ID     int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64           `gorm:"not null;index;uniqueIndex:ux_orders_user_idem" json:"user_id"`
	Total  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total"`
	//同じキーの再送は同じ注文を返す（NULLは重複扱いしない）
	IdempotencyKey *string   `gorm:"type:varchar(255);uniqueIndex:ux_orders_user_idem" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
