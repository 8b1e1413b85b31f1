package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
// カート行の状態は「なし→数量1..999→なし」だけ。
type CartUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 現在価格での見積もり（注文時のスナップショットとは別物）
type CartLineOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartOutput struct {
	Items    []CartLineOutput `json:"items"`
	TotalEst decimal.Decimal  `json:"total_est"`
	// 非公開になって今回消した商品
	Removed []int64 `json:"removed_product_ids"`
}

type UpsertCartItemInput struct {
	ProductID int64
	Quantity  int64
}

type UpsertCartItemOutput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	Removed   bool  `json:"removed"`
}

type MergeCartInput struct {
	Items []OrderLineInput
}

type MergeCartOutput struct {
	Merged       bool `json:"merged"`
	MergedItems  int  `json:"merged_items"`
	SkippedItems int  `json:"skipped_items"`
}

// カート取得。非公開になった商品の行はここで消す
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	out := CartOutput{Items: []CartLineOutput{}, TotalEst: decimal.Zero, Removed: []int64{}}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	items, err := u.cartItemRepo.ListWithProducts(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	for _, it := range items {
		if it.Product == nil || !it.Product.IsActive {
			out.Removed = append(out.Removed, it.ProductID)
			continue
		}
		p := it.Product
		lineTotal := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		out.Items = append(out.Items, CartLineOutput{
			ProductID: p.ID,
			Name:      p.DisplayName(),
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			Quantity:  it.Quantity,
			LineTotal: lineTotal,
		})
		out.TotalEst = out.TotalEst.Add(lineTotal)
	}

	if len(out.Removed) > 0 {
		if _, err := u.cartItemRepo.DeleteByProducts(ctx, cart.ID, out.Removed); err != nil {
			return CartOutput{}, internalError(err)
		}
	}

	return out, nil
}

// 数量を上書き。0なら行を消す
func (u *CartUsecase) UpsertItem(ctx context.Context, userID int64, in UpsertCartItemInput) (UpsertCartItemOutput, error) {
	if userID <= 0 {
		return UpsertCartItemOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return UpsertCartItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 0 || in.Quantity > model.MaxCartItemQuantity {
		return UpsertCartItemOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be between 0 and 999")
	}

	if in.Quantity == 0 {
		if err := u.RemoveItem(ctx, userID, in.ProductID); err != nil {
			return UpsertCartItemOutput{}, err
		}
		return UpsertCartItemOutput{ProductID: in.ProductID, Quantity: 0, Removed: true}, nil
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return UpsertCartItemOutput{}, NewHTTPError(http.StatusNotFound, "product not available")
	}
	if err != nil {
		return UpsertCartItemOutput{}, internalError(err)
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return UpsertCartItemOutput{}, internalError(err)
	}

	item, err := u.cartItemRepo.SetQuantity(ctx, cart.ID, in.ProductID, in.Quantity)
	if err != nil {
		return UpsertCartItemOutput{}, internalError(err)
	}

	return UpsertCartItemOutput{ProductID: item.ProductID, Quantity: item.Quantity}, nil
}

// 1商品分を削除（無くても成功）
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, productID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}

	if err := u.cartItemRepo.DeleteByProduct(ctx, cart.ID, productID); err != nil {
		return internalError(err)
	}
	return nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}

	if err := u.cartItemRepo.ClearByCartID(ctx, cart.ID); err != nil {
		return internalError(err)
	}
	return nil
}

// ゲストカートをログインユーザーのカートへ合流。
// 既存数量＋追加数量を999で頭打ち、公開中の商品だけ反映し、それ以外は黙ってスキップ
func (u *CartUsecase) MergeCart(ctx context.Context, userID int64, in MergeCartInput) (MergeCartOutput, error) {
	if userID <= 0 {
		return MergeCartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out MergeCartOutput

	//不正な行は落とす（1..999以外）
	valid := make([]OrderLineInput, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.Quantity > model.MaxCartItemQuantity {
			out.SkippedItems++
			continue
		}
		valid = append(valid, it)
	}
	lines := mergeLines(valid)
	if len(lines) == 0 {
		return out, nil
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		active, err := r.Products().FindActiveByIDs(ctx, ids)
		if err != nil {
			return internalError(err)
		}
		isActive := make(map[int64]bool, len(active))
		for _, p := range active {
			isActive[p.ID] = true
		}

		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		existing, err := r.CartItems().ListWithProducts(ctx, cart.ID)
		if err != nil {
			return internalError(err)
		}
		current := make(map[int64]int64, len(existing))
		for _, it := range existing {
			current[it.ProductID] = it.Quantity
		}

		for _, l := range lines {
			if !isActive[l.ProductID] {
				out.SkippedItems++
				continue
			}
			qty := current[l.ProductID] + l.Quantity
			if qty > model.MaxCartItemQuantity {
				qty = model.MaxCartItemQuantity
			}
			if _, err := r.CartItems().SetQuantity(ctx, cart.ID, l.ProductID, qty); err != nil {
				return internalError(err)
			}
			out.MergedItems++
		}
		return nil
	})
	if err != nil {
		return MergeCartOutput{}, err
	}

	out.Merged = out.MergedItems > 0
	return out, nil
}
