package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditFilter(f), auditPage(f.Limit, f.Offset)).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

// nilの条件は付けない
func auditFilter(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		eq := map[string]any{}
		if f.ActorUserID != nil {
			eq["actor_user_id"] = *f.ActorUserID
		}
		if f.Action != nil {
			eq["action"] = *f.Action
		}
		if f.ResourceType != nil {
			eq["resource_type"] = *f.ResourceType
		}
		if f.ResourceID != nil {
			eq["resource_id"] = *f.ResourceID
		}
		if len(eq) > 0 {
			db = db.Where(eq)
		}
		if f.CreatedFrom != nil {
			db = db.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			db = db.Where("created_at <= ?", *f.CreatedTo)
		}
		return db
	}
}

func auditPage(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit).Offset(offset)
	}
}
