package model

import "time"

// カートの1行。数量は1..999、0になったら行ごと消す。
// 価格は持たない（表示時に現在価格で見積もる）
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;uniqueIndex:ux_cart_items_cart_product" json:"cart_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_cart_items_cart_product;index" json:"product_id"`
	Quantity  int64     `gorm:"not null;check:quantity BETWEEN 1 AND 999" json:"quantity"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

const MaxCartItemQuantity int64 = 999
