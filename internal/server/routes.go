package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

// ルート登録に必要なハンドラー一式
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, tokens middleware.TokenParser, users middleware.UserFinder, limiter *middleware.RateLimiter, metrics http.Handler) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	h.Auth.RegisterRoutes(e, tokens, users, limiter)
	h.Product.RegisterRoutes(e)
	h.AdminProduct.RegisterRoutes(e, tokens, users)
	h.Cart.RegisterRoutes(e, tokens, users)
	h.Order.RegisterRoutes(e, tokens, users)
	h.AdminOrder.RegisterRoutes(e, tokens, users)
	h.AdminUser.RegisterRoutes(e, tokens, users)
}
