package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// なければErrNotFound
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 初回の更新時にカートを作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
}
