package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫を上書きして履歴を1件残す。adjのProductID/StockBefore/StockAfter/Deltaはここで埋める
	SetStock(ctx context.Context, productID int64, newStock int64, adj model.InventoryAdjustment) (model.InventoryAdjustment, error)

	// 公開中かつ在庫が足りるときだけ減算（falseなら1行も更新していない）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
}
