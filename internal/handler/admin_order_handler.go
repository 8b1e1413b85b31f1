package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder) {
	guards := []echo.MiddlewareFunc{
		middleware.AuthJWT(tokens),
		middleware.ActiveUserGuard(users),
		middleware.AdminRoleGuard(),
	}

	e.GET("/orders", h.list, guards...)
	e.GET("/admin/orders", h.list, guards...)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	limit, ok := queryInt(c, "page_size", 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page_size"})
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		userID = &id
	}

	fromPtr, ok := queryTime(c, "from")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
	}
	toPtr, ok := queryTime(c, "to")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// RFC3339 か 2006-01-02
func queryTime(c echo.Context, name string) (*time.Time, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if tm, err := time.Parse(layout, v); err == nil {
			return &tm, true
		}
	}
	return nil, false
}
