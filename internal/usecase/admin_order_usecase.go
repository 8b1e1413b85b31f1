package usecase

import (
	"context"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 注文は作成後に変更しないので、管理者は参照だけ
type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

// 全ユーザーの注文一覧（user_id・期間で絞り込み可）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if f.Page < 0 || f.Limit < 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit, defaultOrderPageSize, maxOrderPageSize)

	return listOrders(ctx, u.tx, f.Page, f.Limit, func(r repo.TxRepos) ([]model.Order, int64, error) {
		return r.Orders().ListAdmin(ctx, f)
	})
}
