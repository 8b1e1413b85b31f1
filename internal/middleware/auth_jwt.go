package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxPrincipalKey = "principal" // Principal
	TokenCookieName = "token"
)

// 認証済みユーザー。handlerはここからid/roleを取り出してusecaseへ渡す
type Principal struct {
	ID    int64
	Email string
	Role  model.Role
}

// JWTを検証してclaimsを返す（auth.JWTManager）
type TokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

// Authorization: Bearer または tokenクッキーのJWTを検証する
func AuthJWT(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, ok := extractToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, err := parser.Parse(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxPrincipalKey, Principal{
				ID:    claims.UserID,
				Email: claims.Email,
				Role:  claims.Role,
			})

			return next(c)
		}
	}
}

// ヘッダ優先、無ければクッキー
func extractToken(c echo.Context) (string, bool) {
	if authz := c.Request().Header.Get(echo.HeaderAuthorization); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		raw := strings.TrimSpace(parts[1])
		return raw, raw != ""
	}

	cookie, err := c.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// AuthJWTの後でだけ使える
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(CtxPrincipalKey).(Principal)
	if !ok || p.ID <= 0 {
		return Principal{}, false
	}
	return p, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
