package jobs

import (
	"context"
	"time"
)

const (
	JobClearResetTokens  = "clear_expired_reset_tokens"
	JobPurgeCartItems    = "purge_inactive_cart_items"
	JobCleanupRateLimits = "cleanup_rate_limiters"

	rateLimiterIdle = 30 * time.Minute
)

type ResetTokenCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type InactiveCartItemPurger interface {
	PurgeInactive(ctx context.Context) (int64, error)
}

type RateLimiterCleaner interface {
	Cleanup(idle time.Duration) int
}

// 期限切れのパスワード再設定トークンを消す
func ClearExpiredResetTokens(users ResetTokenCleaner, now func() time.Time) JobFunc {
	return func(ctx context.Context) (int64, error) {
		return users.ClearExpiredResetTokens(ctx, now())
	}
}

// 非公開商品のカート行を消す（GetCartでも消えるが、開かれないカートのため）
func PurgeInactiveCartItems(items InactiveCartItemPurger) JobFunc {
	return func(ctx context.Context) (int64, error) {
		return items.PurgeInactive(ctx)
	}
}

func CleanupRateLimiters(rl RateLimiterCleaner) JobFunc {
	return func(context.Context) (int64, error) {
		return int64(rl.Cleanup(rateLimiterIdle)), nil
	}
}

// maintenance cronにまとめて登録する
func RegisterMaintenance(s *Scheduler, spec string, users ResetTokenCleaner, items InactiveCartItemPurger, rl RateLimiterCleaner) error {
	if err := s.Add(spec, JobClearResetTokens, ClearExpiredResetTokens(users, time.Now)); err != nil {
		return err
	}
	if err := s.Add(spec, JobPurgeCartItems, PurgeInactiveCartItems(items)); err != nil {
		return err
	}
	if rl != nil {
		return s.Add(spec, JobCleanupRateLimits, CleanupRateLimiters(rl))
	}
	return nil
}
