package auth

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/validator"
)

// 会員登録の入力
type RegisterUserInput struct {
	FirstName    string
	LastName     string
	DNI          string
	Email        string
	Password     string
	Age          int
	State        string
	City         string
	Street       string
	StreetNumber string
	PostalCode   string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User model.User `json:"user"`
}

const minAge = 18

// RegisterUserUsecaseは会員登録の処理。ロールは常にclient
type RegisterUserUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	clock    Clock
}

// DI
func NewRegisterUserUsecase(userRepo repository.UserRepository, hasher PasswordHasher, clock Clock) *RegisterUserUsecase {
	return &RegisterUserUsecase{userRepo: userRepo, hasher: hasher, clock: clock}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	user, err := buildUser(in)
	if err != nil {
		return out, err
	}
	if err := validator.ValidatePassword(in.Password); err != nil {
		return out, invalid(err.Error())
	}

	// email重複チェック（同時登録はDBの一意制約で止まる）
	existing, err := u.userRepo.FindByEmail(ctx, user.Email)
	if err == nil && existing != nil {
		return out, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return out, err
	}

	// パスワードをハッシュ化（平文は保存しない）
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}
	now := u.clock.Now()
	user.PasswordHash = hashed
	user.Role = model.RoleClient
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := u.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return out, ErrUserAlreadyExists
		}
		return out, err
	}

	out.User = user
	return out, nil
}

// プロフィール項目の検証（管理者のユーザー作成でも使う）
func buildUser(in RegisterUserInput) (model.User, error) {
	user := model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		DNI:          strings.TrimSpace(in.DNI),
		Email:        validator.NormalizeEmail(in.Email),
		Age:          in.Age,
		State:        strings.TrimSpace(in.State),
		City:         strings.TrimSpace(in.City),
		Street:       strings.TrimSpace(in.Street),
		StreetNumber: strings.TrimSpace(in.StreetNumber),
		PostalCode:   strings.TrimSpace(in.PostalCode),
	}

	for _, v := range []string{user.FirstName, user.LastName, user.DNI, user.State, user.City, user.Street, user.StreetNumber, user.PostalCode} {
		if v == "" {
			return model.User{}, invalid("all fields are required")
		}
	}
	if err := validator.ValidateEmail(user.Email); err != nil {
		return model.User{}, invalid(err.Error())
	}
	if user.Age < minAge {
		return model.User{}, invalid("must be at least 18 years old")
	}
	return user, nil
}

// 管理者用：ロール指定あり
func BuildUser(in RegisterUserInput, role model.Role, hasher PasswordHasher) (model.User, error) {
	if role != model.RoleClient && role != model.RoleAdmin {
		return model.User{}, invalid("invalid role")
	}
	user, err := buildUser(in)
	if err != nil {
		return model.User{}, err
	}
	if err := validator.ValidatePassword(in.Password); err != nil {
		return model.User{}, invalid(err.Error())
	}
	hashed, err := hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	user.PasswordHash = hashed
	user.Role = role
	user.IsActive = true
	return user, nil
}
