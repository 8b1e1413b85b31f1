package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/sirupsen/logrus"
)

const resetTokenTTL = 30 * time.Minute

type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// パスワード再設定。メール送信はせず、リンクをログに出す
type PasswordResetUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	clock    Clock
	appURL   string
	log      logrus.FieldLogger
}

func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	clock Clock,
	appURL string,
	log logrus.FieldLogger,
) *PasswordResetUsecase {
	return &PasswordResetUsecase{userRepo: userRepo, hasher: hasher, clock: clock, appURL: appURL, log: log}
}

// 存在しないメールでもエラーにしない（登録有無を漏らさない）。
// 戻り値のリンクはテスト用で、handlerは返さない
func (u *PasswordResetUsecase) RequestReset(ctx context.Context, email string) (string, error) {
	email = validator.NormalizeEmail(email)
	if validator.ValidateEmail(email) != nil {
		return "", invalid("invalid email format")
	}

	user, err := u.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	plain, err := generateSecureToken(32)
	if err != nil {
		return "", err
	}
	hash := hashToken(plain)
	exp := u.clock.Now().Add(resetTokenTTL)
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &exp
	if err := u.userRepo.Update(ctx, user); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", u.appURL, url.QueryEscape(plain))
	u.log.WithFields(logrus.Fields{"user_id": user.ID, "expires_at": exp}).
		Infof("password reset requested: %s", link)
	return link, nil
}

func (u *PasswordResetUsecase) Reset(ctx context.Context, in ResetPasswordInput) error {
	if in.Token == "" {
		return invalid("token is required")
	}
	if in.Password != in.ConfirmPassword {
		return invalid("passwords do not match")
	}
	if err := validator.ValidatePassword(in.Password); err != nil {
		return invalid(err.Error())
	}

	user, err := u.userRepo.FindByResetTokenHash(ctx, hashToken(in.Token), u.clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	return u.userRepo.Update(ctx, user)
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", fmt.Errorf("bytesLen must be positive")
	}

	// ランダムなバイト列を作る（OSが持つ安全な乱数）
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
