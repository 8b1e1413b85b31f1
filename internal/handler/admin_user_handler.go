package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const defaultAuditLogLimit = 50

type AdminCreateUserRequest struct {
	RegisterRequest
	Role model.Role `json:"role" validate:"omitempty,oneof=client admin"`
}

// 省略した項目は変更しない
type AdminUpdateUserRequest struct {
	FirstName    *string     `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string     `json:"last_name" validate:"omitempty,max=100"`
	Email        *string     `json:"email" validate:"omitempty,max=255"`
	Age          *int        `json:"age" validate:"omitempty,gte=18,lte=150"`
	State        *string     `json:"state" validate:"omitempty,max=100"`
	City         *string     `json:"city" validate:"omitempty,max=100"`
	Street       *string     `json:"street" validate:"omitempty,max=255"`
	StreetNumber *string     `json:"street_number" validate:"omitempty,max=20"`
	PostalCode   *string     `json:"postal_code" validate:"omitempty,max=20"`
	Role         *model.Role `json:"role" validate:"omitempty,oneof=client admin"`
	IsActive     *bool       `json:"is_active"`
	Password     *string     `json:"password" validate:"omitempty,max=72"`
}

// /users（管理者のみ）と /admin/audit-logs
type AdminUserHandler struct {
	uc      *usecase.UserUsecase
	auditUC *usecase.AuditLogUsecase
}

func NewAdminUserHandler(uc *usecase.UserUsecase, auditUC *usecase.AuditLogUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, auditUC: auditUC}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, tokens middleware.TokenParser, users middleware.UserFinder) {
	guards := []echo.MiddlewareFunc{
		middleware.AuthJWT(tokens),
		middleware.ActiveUserGuard(users),
		middleware.AdminRoleGuard(),
	}

	g := e.Group("/users", guards...)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.deactivate)

	e.GET("/admin/audit-logs", h.auditLogs, guards...)
}

func (h *AdminUserHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page_size"})
	}

	out, err := h.uc.List(c.Request().Context(), page, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	u, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminUserHandler) create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req AdminCreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	u, err := h.uc.Create(c.Request().Context(), p.ID, usecase.AdminCreateUserInput{
		RegisterUserInput: req.RegisterRequest.toInput(),
		Role:              req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *AdminUserHandler) update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req AdminUpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	u, err := h.uc.Update(c.Request().Context(), p.ID, id, usecase.AdminUpdateUserInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Age:          req.Age,
		State:        req.State,
		City:         req.City,
		Street:       req.Street,
		StreetNumber: req.StreetNumber,
		PostalCode:   req.PostalCode,
		Role:         req.Role,
		IsActive:     req.IsActive,
		Password:     req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// 削除は停止
func (h *AdminUserHandler) deactivate(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Deactivate(c.Request().Context(), p.ID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deactivated"})
}

// action, resource_type, resource_id, actor_user_id, from, to, limit, offset
func (h *AdminUserHandler) auditLogs(c echo.Context) error {
	f := repository.AuditLogFilter{}

	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		r := model.AuditResourceType(v)
		f.ResourceType = &r
	}
	for _, q := range []struct {
		name string
		dst  **int64
	}{
		{"resource_id", &f.ResourceID},
		{"actor_user_id", &f.ActorUserID},
	} {
		if v := c.QueryParam(q.name); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + q.name})
			}
			*q.dst = &id
		}
	}

	var ok bool
	if f.CreatedFrom, ok = queryTime(c, "from"); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
	}
	if f.CreatedTo, ok = queryTime(c, "to"); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
	}
	if f.Limit, ok = queryInt(c, "limit", defaultAuditLogLimit); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}

	logs, err := h.auditUC.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
