package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email/dniの重複はErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//期限内の再設定トークンを持つユーザー
	FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	//期限切れの再設定トークンを消す
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
