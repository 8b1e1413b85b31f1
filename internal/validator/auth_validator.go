package validator

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrWeakPassword       = errors.New("password is too common")
)

const MinPasswordLength = 8

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// 前後の空白を落として小文字にする
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// 簡易メール形式をチェック
func ValidateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" || !emailRe.MatchString(trimmed) {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

// 長さとよくある弱いパスワードの拒否
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if isWeakPassword(password) {
		return ErrWeakPassword
	}
	return nil
}

func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":     {},
		"password1":    {},
		"password123":  {},
		"123456789012": {},
		"1234567890":   {},
		"12345678":     {},
		"123456789":    {},
		"qwertyuiop":   {},
		"qwerty123":    {},
		"iloveyou":     {},
		"letmein1":     {},
		"admin123":     {},
	}

	_, ok := weak[normalized]
	return ok
}
