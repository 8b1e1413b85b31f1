package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultProductImage    = "/img/no-image.png"
	defaultProductFeatures = "No description"
	maxProductPageSize     = 50
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	PageSize int
	Q        string
	Sort     string
	// 管理者一覧だけで使う
	Active *bool
}

type ProductListOutput struct {
	Items    []model.Product `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int64           `json:"total"`
	HasMore  bool            `json:"has_more"`
}

// 作成・更新の入力。更新ではnilの項目は変更しない
type ProductInput struct {
	Type       *string
	Category   *string
	Brand      *string
	Model      *string
	Dimensions *model.Dimensions
	Price      *decimal.Decimal
	ImageURL   *string
	Features   *string
	Stock      *int64
	IsActive   *bool
}

// 公開商品だけ
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	active := true
	in.Active = &active
	return u.list(ctx, in)
}

// 非公開も含む（in.Activeで絞り込み可）
func (u *ProductUsecase) AdminListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.PageSize < 1 || in.PageSize > maxProductPageSize {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page_size")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	switch in.Sort {
	case "":
		in.Sort = repo.SortNewest
	case repo.SortNewest, repo.SortPriceAsc, repo.SortPriceDesc:
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:   in.Page,
		Limit:  in.PageSize,
		Q:      strings.TrimSpace(in.Q),
		Sort:   in.Sort,
		Active: in.Active,
	})
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}

	return ProductListOutput{
		Items:    items,
		Page:     in.Page,
		PageSize: in.PageSize,
		Total:    total,
		HasMore:  int64(in.Page*in.PageSize) < total,
	}, nil
}

// 公開中のものだけ返す
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.AdminGetProduct(ctx, productID)
	if err != nil {
		return model.Product{}, err
	}
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	return p, nil
}

func (u *ProductUsecase) AdminGetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}
	return p, nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	p, err := newProductFromInput(in)
	if err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return model.Product{}, internalError(err)
	}

	if err := u.audit(ctx, adminUserID, model.AuditActionCreateProduct, created.ID, nil, created); err != nil {
		return model.Product{}, err
	}
	return created, nil
}

// 作成時の検証と既定値（インポートでも使う）
func newProductFromInput(in ProductInput) (model.Product, error) {
	p := model.Product{
		Type:     trimOrEmpty(in.Type),
		Category: trimOrEmpty(in.Category),
		Brand:    trimOrEmpty(in.Brand),
		Model:    trimOrEmpty(in.Model),
		ImageURL: trimOrEmpty(in.ImageURL),
		Features: trimOrEmpty(in.Features),
		IsActive: true,
	}
	if p.Type == "" || p.Category == "" || p.Brand == "" || p.Model == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "type, category, brand and model are required")
	}
	if in.Price == nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	//丸めた後の値で判定する
	p.Price = in.Price.Round(2)
	if !p.Price.IsPositive() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	if in.Stock == nil || *in.Stock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	p.Stock = *in.Stock
	if in.Dimensions == nil || !in.Dimensions.Valid() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "dimensions must have positive length, width and thickness")
	}
	p.Dimensions = *in.Dimensions
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.ImageURL == "" {
		p.ImageURL = defaultProductImage
	}
	if p.Features == "" {
		p.Features = defaultProductFeatures
	}
	return p, nil
}

// 在庫・公開状態は専用の操作で変える
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	before, err := u.AdminGetProduct(ctx, productID)
	if err != nil {
		return model.Product{}, err
	}

	after := before
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{in.Type, &after.Type},
		{in.Category, &after.Category},
		{in.Brand, &after.Brand},
		{in.Model, &after.Model},
		{in.ImageURL, &after.ImageURL},
		{in.Features, &after.Features},
	} {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "fields must not be empty")
		}
		*f.dst = v
	}
	if in.Price != nil {
		price := in.Price.Round(2)
		if !price.IsPositive() {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
		}
		after.Price = price
	}
	if in.Dimensions != nil {
		if !in.Dimensions.Valid() {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "dimensions must have positive length, width and thickness")
		}
		after.Dimensions = *in.Dimensions
	}

	if err := u.productRepo.Update(ctx, after); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return model.Product{}, internalError(err)
	}

	if err := u.audit(ctx, adminUserID, model.AuditActionUpdateProduct, productID, before, after); err != nil {
		return model.Product{}, err
	}
	return after, nil
}

// 削除は論理削除（非公開にするだけ）
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	return u.AdminSetActive(ctx, adminUserID, productID, false)
}

func (u *ProductUsecase) AdminSetActive(ctx context.Context, adminUserID int64, productID int64, active bool) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.productRepo.SetActive(ctx, productID, active)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return internalError(err)
	}

	return u.audit(ctx, adminUserID, model.AuditActionSetProductActive, productID,
		nil, map[string]bool{"is_active": active})
}

// 在庫の上書き。差分は調整履歴に残る
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) (model.InventoryAdjustment, error) {
	if adminUserID <= 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if newStock < 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	adj, err := u.inventoryRepo.SetStock(ctx, productID, newStock, model.InventoryAdjustment{
		AdminUserID: adminUserID,
		Reason:      strings.TrimSpace(reason),
		CreatedAt:   time.Now(),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.InventoryAdjustment{}, internalError(err)
	}

	if err := u.audit(ctx, adminUserID, model.AuditActionUpdateStock, productID,
		map[string]int64{"stock": adj.StockBefore}, map[string]int64{"stock": adj.StockAfter}); err != nil {
		return model.InventoryAdjustment{}, err
	}
	return adj, nil
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func (u *ProductUsecase) audit(ctx context.Context, actorID int64, action model.AuditAction, productID int64, before, after interface{}) error {
	return writeAudit(ctx, u.auditRepo, actorID, action, model.AuditResourceProduct, productID, before, after)
}

func writeAudit(
	ctx context.Context,
	auditRepo repo.AuditLogRepository,
	actorID int64,
	action model.AuditAction,
	resourceType model.AuditResourceType,
	resourceID int64,
	before, after interface{},
) error {
	if err := auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    time.Now(),
	}); err != nil {
		return internalError(err)
	}
	return nil
}

func toJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func trimOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
