package auth

import (
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var (
	// メールまたはパスワードが違う
	ErrInvalidCredentials = errors.New("invalid credentials")
	// 停止済みユーザー
	ErrUserInactive = errors.New("user is inactive")
	// email/dniの重複
	ErrUserAlreadyExists = errors.New("user already exists")
	// 再設定トークンが不正か期限切れ
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// 入力が不正（400）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, expiresAt time.Time, err error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
