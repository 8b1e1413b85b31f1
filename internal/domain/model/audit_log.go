package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	AuditActionCreateProduct    AuditAction = "CREATE_PRODUCT"
	AuditActionUpdateProduct    AuditAction = "UPDATE_PRODUCT"
	AuditActionSetProductActive AuditAction = "SET_PRODUCT_ACTIVE"
	AuditActionUpdateStock      AuditAction = "UPDATE_STOCK"
	AuditActionImportProducts   AuditAction = "IMPORT_PRODUCTS"
	AuditActionCreateUser       AuditAction = "CREATE_USER"
	AuditActionUpdateUser       AuditAction = "UPDATE_USER"
	AuditActionDeactivateUser   AuditAction = "DEACTIVATE_USER"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceUser    AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のID
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//一括インポートのように対象が複数のときは0
	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//変更前後をJSON文字列で保存する
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
