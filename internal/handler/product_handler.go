package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const defaultProductPageSize = 12

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, ok := listProductsInput(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// page, page_size, q, sort
func listProductsInput(c echo.Context) (usecase.ListProductsInput, bool) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return usecase.ListProductsInput{}, false
	}
	size, ok := queryInt(c, "page_size", defaultProductPageSize)
	if !ok {
		return usecase.ListProductsInput{}, false
	}
	return usecase.ListProductsInput{
		Page:     page,
		PageSize: size,
		Q:        c.QueryParam("q"),
		Sort:     c.QueryParam("sort"),
	}, true
}
