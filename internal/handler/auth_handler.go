package handler

import (
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	registerUC   *auth.RegisterUserUsecase // 会員登録usecase
	loginUC      *auth.LoginUsecase        // ログインusecase
	resetUC      *auth.PasswordResetUsecase
	userUC       *usecase.UserUsecase
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	resetUC *auth.PasswordResetUsecase,
	userUC *usecase.UserUsecase,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		registerUC:   registerUC,
		loginUC:      loginUC,
		resetUC:      resetUC,
		userUC:       userUC,
		cookieSecure: cookieSecure,
	}
}

// /auth/register のリクエストボディ。中身の検証はusecase
type RegisterRequest struct {
	FirstName    string `json:"first_name" validate:"max=100"`
	LastName     string `json:"last_name" validate:"max=100"`
	DNI          string `json:"dni" validate:"max=20"`
	Email        string `json:"email" validate:"max=255"`
	Password     string `json:"password" validate:"max=72"`
	Age          int    `json:"age"`
	State        string `json:"state" validate:"max=100"`
	City         string `json:"city" validate:"max=100"`
	Street       string `json:"street" validate:"max=255"`
	StreetNumber string `json:"street_number" validate:"max=20"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
}

func (r RegisterRequest) toInput() auth.RegisterUserInput {
	return auth.RegisterUserInput{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		DNI:          r.DNI,
		Email:        r.Email,
		Password:     r.Password,
		Age:          r.Age,
		State:        r.State,
		City:         r.City,
		Street:       r.Street,
		StreetNumber: r.StreetNumber,
		PostalCode:   r.PostalCode,
	}
}

// /auth/login のリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,max=255"`
	Password        string `json:"password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=72"`
}

// /auth はIPごとにレート制限。/auth/meだけ認証必須
func (h *AuthHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder, limiter *middleware.RateLimiter) {
	g := e.Group("/auth")
	if limiter != nil {
		g.Use(limiter.Middleware())
	}

	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/reset-password", h.resetPassword)
	g.GET("/me", h.me, middleware.AuthJWT(tokens), middleware.ActiveUserGuard(users))
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.registerUC.Execute(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}

	h.setTokenCookie(c, out.Token, out.ExpiresAt)

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	h.setTokenCookie(c, "", time.Unix(0, 0))
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	u, err := h.userUC.Me(c.Request().Context(), p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// 登録の有無にかかわらず同じ応答
func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if _, err := h.resetUC.RequestReset(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "if the email exists, a reset link has been sent"})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.resetUC.Reset(c.Request().Context(), auth.ResetPasswordInput{
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password updated"})
}

// tokenをCookieにセット。空文字+過去の期限で削除
func (h *AuthHandler) setTokenCookie(c echo.Context, token string, exp time.Time) {
	cookie := &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	c.SetCookie(cookie)
}
