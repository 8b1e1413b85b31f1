package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const importFormField = "excel"

// 作成・更新の共通ボディ。更新では省略した項目は変更しない
type ProductRequest struct {
	Type       *string           `json:"type" validate:"omitempty,max=100"`
	Category   *string           `json:"category" validate:"omitempty,max=100"`
	Brand      *string           `json:"brand" validate:"omitempty,max=100"`
	Model      *string           `json:"model" validate:"omitempty,max=150"`
	Dimensions *model.Dimensions `json:"dimensions"`
	Price      *decimal.Decimal  `json:"price"`
	ImageURL   *string           `json:"image_url" validate:"omitempty,max=500"`
	Features   *string           `json:"features"`
	Stock      *int64            `json:"stock" validate:"omitempty,gte=0"`
	IsActive   *bool             `json:"is_active"`
}

func (r ProductRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		Type:       r.Type,
		Category:   r.Category,
		Brand:      r.Brand,
		Model:      r.Model,
		Dimensions: r.Dimensions,
		Price:      r.Price,
		ImageURL:   r.ImageURL,
		Features:   r.Features,
		Stock:      r.Stock,
		IsActive:   r.IsActive,
	}
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// 在庫更新の入力です。
type StockUpdateRequest struct {
	Stock  *int64 `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"max=255"`
}

// 商品の管理API（/products配下の更新系と/admin/products）
type AdminProductHandler struct {
	uc       *usecase.ProductUsecase
	importUC *usecase.ImportUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, importUC *usecase.ImportUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, importUC: importUC}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder) {
	guards := []echo.MiddlewareFunc{
		middleware.AuthJWT(tokens),
		middleware.ActiveUserGuard(users),
		middleware.AdminRoleGuard(),
	}

	// 公開GETと同じパスなのでルート単位でガードを付ける
	e.POST("/products", h.createProduct, guards...)
	e.POST("/products/import-excel", h.importExcel, guards...)
	e.PUT("/products/:id", h.updateProduct, guards...)
	e.DELETE("/products/:id", h.deleteProduct, guards...)
	e.PATCH("/products/:id/active", h.setActive, guards...)
	e.PUT("/products/:id/stock", h.updateStock, guards...)

	admin := e.Group("/admin/products", guards...)
	admin.GET("", h.list)
	admin.GET("/:id", h.detail)
}

func (h *AdminProductHandler) list(c echo.Context) error {
	in, ok := listProductsInput(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	switch c.QueryParam("active") {
	case "":
	case "true":
		v := true
		in.Active = &v
	case "false":
		v := false
		in.Active = &v
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid active"})
	}

	out, err := h.uc.AdminListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.uc.AdminGetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	created, err := h.uc.AdminCreateProduct(c.Request().Context(), p.ID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	updated, err := h.uc.AdminUpdateProduct(c.Request().Context(), p.ID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// 論理削除（is_active=false）
func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), p.ID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) setActive(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SetActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminSetActive(c.Request().Context(), p.ID, id, *req.IsActive); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) updateStock(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StockUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adj, err := h.uc.AdminUpdateInventory(c.Request().Context(), p.ID, id, *req.Stock, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, adj)
}

// multipartのexcelフィールドを読む
func (h *AdminProductHandler) importExcel(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	fh, err := c.FormFile(importFormField)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "excel file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "excel file is required"})
	}
	defer f.Close()

	out, err := h.importUC.ImportProducts(c.Request().Context(), p.ID, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
