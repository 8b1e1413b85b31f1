package repository

import (
	"context"

	"storefront/internal/domain/model"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// 一覧検索
type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
	Sort  string
	// nilなら公開/非公開の両方（管理者用）
	Active *bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 公開中のものだけ返す。見つからないIDは結果に含まれない
	FindActiveByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}
