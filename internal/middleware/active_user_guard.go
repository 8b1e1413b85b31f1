package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// トークンが有効でも、削除・停止されたユーザーは通さない。
// roleはDBの値で上書きする（降格後の古いトークン対策）
func ActiveUserGuard(users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたprincipalを取得する
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBから最新のuserを取得する
			user, err := users.FindByID(c.Request().Context(), p.ID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && user == nil) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if err != nil {
				LoggerFrom(c).WithError(err).WithField("user_id", p.ID).Error("active user lookup failed")
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("user is inactive"))
			}

			p.Role = user.Role
			p.Email = user.Email
			c.Set(CtxPrincipalKey, p)

			return next(c)
		}
	}
}
