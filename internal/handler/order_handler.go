package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const headerIdempotencyKey = "Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int64 `json:"quantity" validate:"gt=0,lte=999"`
}

type OrderCreateRequest struct {
	Items []OrderLineRequest `json:"items" validate:"max=200,dive"`
}

// card_idは記録して返すだけ（課金しない）
type CheckoutRequest struct {
	CardID string `json:"card_id" validate:"max=255"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(tokens))
	g.Use(middleware.ActiveUserGuard(users))

	g.POST("", h.create)
	g.POST("/checkout", h.checkout)
	g.GET("/mine", h.mine)
	g.GET("/:id", h.detail)
}

func (h *OrderHandler) create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	items := make([]usecase.OrderLineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	out, err := h.uc.CreateOrder(c.Request().Context(), p.ID, usecase.CreateOrderInput{
		Items:          items,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) checkout(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CheckoutFromCart(c.Request().Context(), p.ID, usecase.CheckoutInput{
		CardID:         req.CardID,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) mine(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page_size"})
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), p.ID, page, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetOrder(c.Request().Context(), p.ID, p.Role, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
