package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const TypeOrderCreated = "order.created"

// 注文確定後に外へ流すイベント
type OrderCreated struct {
	OrderID   int64              `json:"order_id"`
	UserID    int64              `json:"user_id"`
	Source    string             `json:"source"` // direct / cart
	Total     decimal.Decimal    `json:"total"`
	Items     []OrderCreatedItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

type OrderCreatedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
