package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// /auth/me と /users（管理者）の業務ロジック
type UserUsecase struct {
	userRepo  repo.UserRepository
	auditRepo repo.AuditLogRepository
	hasher    auth.PasswordHasher
}

func NewUserUsecase(userRepo repo.UserRepository, auditRepo repo.AuditLogRepository, hasher auth.PasswordHasher) *UserUsecase {
	return &UserUsecase{userRepo: userRepo, auditRepo: auditRepo, hasher: hasher}
}

type UserListOutput struct {
	Items    []model.User `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int64        `json:"total"`
	HasMore  bool         `json:"has_more"`
}

type AdminCreateUserInput struct {
	auth.RegisterUserInput
	Role model.Role
}

// nilの項目は変更しない
type AdminUpdateUserInput struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Age          *int
	State        *string
	City         *string
	Street       *string
	StreetNumber *string
	PostalCode   *string
	Role         *model.Role
	IsActive     *bool
	Password     *string
}

func (u *UserUsecase) Me(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.Get(ctx, userID)
}

func (u *UserUsecase) Get(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.User{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return model.User{}, internalError(err)
	}
	return *user, nil
}

func (u *UserUsecase) List(ctx context.Context, page, pageSize int) (UserListOutput, error) {
	page, pageSize = normalizePage(page, pageSize, defaultUserPageSize, maxUserPageSize)

	users, total, err := u.userRepo.List(ctx, page, pageSize)
	if err != nil {
		return UserListOutput{}, internalError(err)
	}
	return UserListOutput{
		Items:    users,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasMore:  int64(page*pageSize) < total,
	}, nil
}

func (u *UserUsecase) Create(ctx context.Context, adminUserID int64, in AdminCreateUserInput) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleClient
	}
	user, err := auth.BuildUser(in.RegisterUserInput, in.Role, u.hasher)
	if err != nil {
		return model.User{}, err
	}

	if err := u.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, NewHTTPError(http.StatusConflict, "email or dni already registered")
		}
		return model.User{}, internalError(err)
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreateUser, model.AuditResourceUser, user.ID,
		nil, map[string]interface{}{"email": user.Email, "role": user.Role}); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (u *UserUsecase) Update(ctx context.Context, adminUserID int64, userID int64, in AdminUpdateUserInput) (model.User, error) {
	user, err := u.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	before := map[string]interface{}{"email": user.Email, "role": user.Role, "is_active": user.IsActive}

	for _, f := range []struct {
		src *string
		dst *string
	}{
		{in.FirstName, &user.FirstName},
		{in.LastName, &user.LastName},
		{in.State, &user.State},
		{in.City, &user.City},
		{in.Street, &user.Street},
		{in.StreetNumber, &user.StreetNumber},
		{in.PostalCode, &user.PostalCode},
	} {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "fields must not be empty")
		}
		*f.dst = v
	}
	if in.Email != nil {
		email := validator.NormalizeEmail(*in.Email)
		if err := validator.ValidateEmail(email); err != nil {
			return model.User{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
		user.Email = email
	}
	if in.Age != nil {
		if *in.Age < 18 {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "must be at least 18 years old")
		}
		user.Age = *in.Age
	}
	if in.Role != nil {
		if *in.Role != model.RoleClient && *in.Role != model.RoleAdmin {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		if userID == adminUserID && *in.Role != model.RoleAdmin {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "cannot change your own role")
		}
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		if userID == adminUserID && !*in.IsActive {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "cannot deactivate yourself")
		}
		user.IsActive = *in.IsActive
	}
	if in.Password != nil {
		if err := validator.ValidatePassword(*in.Password); err != nil {
			return model.User{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
		hashed, err := u.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, internalError(err)
		}
		user.PasswordHash = hashed
	}

	if err := u.userRepo.Update(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, NewHTTPError(http.StatusConflict, "email already registered")
		}
		return model.User{}, internalError(err)
	}

	after := map[string]interface{}{"email": user.Email, "role": user.Role, "is_active": user.IsActive}
	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdateUser, model.AuditResourceUser, user.ID, before, after); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// 削除は停止扱い（注文履歴が残るため行は消さない）
func (u *UserUsecase) Deactivate(ctx context.Context, adminUserID int64, userID int64) error {
	if userID == adminUserID {
		return NewHTTPError(http.StatusBadRequest, "cannot deactivate yourself")
	}
	user, err := u.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	if err := u.userRepo.Update(ctx, &user); err != nil {
		return internalError(err)
	}
	return writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDeactivateUser, model.AuditResourceUser, userID,
		map[string]bool{"is_active": true}, map[string]bool{"is_active": false})
}
