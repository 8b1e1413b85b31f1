package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 行ロックで変更前の在庫を読み、上書きと履歴作成を同じtxで行う
func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64, adj model.InventoryAdjustment) (model.InventoryAdjustment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock").
			First(&p, productID).Error
		if isNotFound(err) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&model.Product{}).
			Where("id = ?", productID).
			Update("stock", newStock).Error; err != nil {
			return err
		}

		adj.ProductID = productID
		adj.StockBefore = p.Stock
		adj.StockAfter = newStock
		adj.Delta = newStock - p.Stock
		return tx.Create(&adj).Error
	})
	if err != nil {
		return model.InventoryAdjustment{}, err
	}
	return adj, nil
}

// 在庫が足りて公開中のときだけ減らす。
// 1文のUPDATEなので同じ商品への同時注文は行ロックで直列になる
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ? AND is_active = ?", productID, qty, true).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
