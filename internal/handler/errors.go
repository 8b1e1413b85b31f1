package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// usecaseのエラーをステータスに変換する。500の原因はログだけに出す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if de, ok := usecase.AsDomainError(err); ok {
		return c.JSON(domainStatus(de.Kind), ErrorResponse{Error: de.Error()})
	}

	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			logServerError(c, he.Err)
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	var authValErr *auth.ValidationError
	var reqValErr *validator.ValidationError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &authValErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: authValErr.Message})
	case errors.As(err, &reqValErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: reqValErr.Message})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidResetToken):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &echoErr) && echoErr.Code < http.StatusInternalServerError:
		return c.JSON(echoErr.Code, ErrorResponse{Error: http.StatusText(echoErr.Code)})
	}

	//500
	logServerError(c, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func domainStatus(kind usecase.DomainErrorKind) int {
	switch kind {
	case usecase.ErrKindEmptyItems, usecase.ErrKindEmptyCart:
		return http.StatusBadRequest
	case usecase.ErrKindOutOfStock, usecase.ErrKindProductInactive:
		return http.StatusConflict
	case usecase.ErrKindProductNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func logServerError(c echo.Context, cause error) {
	entry := middleware.LoggerFrom(c).WithField("path", c.Path())
	if cause != nil {
		entry = entry.WithError(cause)
	}
	entry.Error("internal error")
}

// bindとvalidateをまとめる。エラーはwriteErrorに渡す
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空なら既定値。数字でなければfalse
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}
