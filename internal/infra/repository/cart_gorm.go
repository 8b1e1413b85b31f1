package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// カートとカート明細の両方を扱う
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error

	if isNotFound(err) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 無ければ作る。user_idのunique制約で同時作成でも1つになる
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	newCart := model.Cart{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&newCart).Error
	if err != nil {
		return model.Cart{}, err
	}
	if newCart.ID != 0 {
		return newCart, nil
	}

	//競合したときは既存を読む
	return r.FindByUserID(ctx, userID)
}

// カート明細を商品付きで一覧取得
func (r *CartGormRepository) ListWithProducts(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// (cart_id, product_id)で上書きupsert
func (r *CartGormRepository) SetQuantity(ctx context.Context, cartID int64, productID int64, qty int64) (model.CartItem, error) {
	item := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&item).Error
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 1商品分の明細を削除（無くてもOK）
func (r *CartGormRepository) DeleteByProduct(ctx context.Context, cartID int64, productID int64) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{}).Error
}

func (r *CartGormRepository) DeleteByProducts(ctx context.Context, cartID int64, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id IN ?", cartID, productIDs).
		Delete(&model.CartItem{})
	return res.RowsAffected, res.Error
}

// 指定カートの明細を全削除
func (r *CartGormRepository) ClearByCartID(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}

// 非公開商品の明細をまとめて削除（定期ジョブ用）
func (r *CartGormRepository) PurgeInactive(ctx context.Context) (int64, error) {
	inactive := r.db.Model(&model.Product{}).Select("id").Where("is_active = ?", false)

	res := r.db.WithContext(ctx).
		Where("product_id IN (?)", inactive).
		Delete(&model.CartItem{})
	return res.RowsAffected, res.Error
}
