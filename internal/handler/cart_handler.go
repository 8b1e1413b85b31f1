package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// quantity=0で削除
type UpsertCartItemRequest struct {
	ProductID int64  `json:"product_id" validate:"gt=0"`
	Quantity  *int64 `json:"quantity" validate:"required,gte=0,lte=999"`
}

type CartLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// ゲストカートの中身。不正な行はusecase側で読み飛ばす
type MergeCartRequest struct {
	Items []CartLineRequest `json:"items" validate:"max=200"`
}

// /cart を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(tokens))
	g.Use(middleware.ActiveUserGuard(users))

	g.GET("", h.getCart)
	g.DELETE("", h.clearCart)
	g.POST("/items", h.upsertItem)
	g.DELETE("/items/:productId", h.removeItem)
	g.POST("/merge", h.merge)
}

func (h *CartHandler) getCart(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) upsertItem(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpsertCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpsertItem(c.Request().Context(), p.ID, usecase.UpsertCartItemInput{
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	if err := h.uc.RemoveItem(c.Request().Context(), p.ID, productID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.ClearCart(c.Request().Context(), p.ID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) merge(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req MergeCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	items := make([]usecase.OrderLineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	out, err := h.uc.MergeCart(c.Request().Context(), p.ID, usecase.MergeCartInput{Items: items})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
