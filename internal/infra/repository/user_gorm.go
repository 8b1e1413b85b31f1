package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicate
		}
		return err
	}
	return nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("email = ?", email))
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// 期限内のトークンだけ
func (r *userGormRepository) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, now))
}

func (r *userGormRepository) first(_ context.Context, q *gorm.DB) (*model.User, error) {
	var u model.User
	err := q.First(&u).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userGormRepository) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	users := []model.User{}
	err := r.db.WithContext(ctx).
		Order("id asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error
	if err != nil {
		return []model.User{}, 0, err
	}
	return users, total, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicate
		}
		return err
	}
	return nil
}

// 期限切れの再設定トークンをNULLに戻す
func (r *userGormRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= ?", now).
		Updates(map[string]interface{}{
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}
