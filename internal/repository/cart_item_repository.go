package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartItemRepository interface {
	// Productをpreloadして返す（商品が消えていればProductはnil）
	ListWithProducts(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 数量を上書き（なければ作る）
	SetQuantity(ctx context.Context, cartID int64, productID int64, qty int64) (model.CartItem, error)
	// 行がなくてもエラーにしない
	DeleteByProduct(ctx context.Context, cartID int64, productID int64) error
	DeleteByProducts(ctx context.Context, cartID int64, productIDs []int64) (int64, error)
	ClearByCartID(ctx context.Context, cartID int64) error
	// 非公開になった商品の行を全カートから消す
	PurgeInactive(ctx context.Context) (int64, error)
}
