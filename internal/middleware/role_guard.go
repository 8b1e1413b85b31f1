package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// 指定roleのどれかを持つprincipalだけ通す。AuthJWTの後に置く
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}
	forbidden := errorJSON(strings.Join(names, " or ") + " only")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok || p.Role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if _, ok := allowed[p.Role]; !ok {
				return c.JSON(http.StatusForbidden, forbidden)
			}
			return next(c)
		}
	}
}

// 管理画面API用
func AdminRoleGuard() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}
