package model

import "time"

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string `gorm:"type:varchar(100);not null" json:"last_name"`
	DNI          string `gorm:"column:dni;type:varchar(20);uniqueIndex;not null" json:"dni"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Age          int    `gorm:"not null" json:"age"`

	//住所（プロフィール）
	State        string `gorm:"type:varchar(100);not null" json:"state"`
	City         string `gorm:"type:varchar(100);not null" json:"city"`
	Street       string `gorm:"type:varchar(150);not null" json:"street"`
	StreetNumber string `gorm:"type:varchar(20);not null" json:"street_number"`
	PostalCode   string `gorm:"type:varchar(20);not null" json:"postal_code"`

	Role     Role `gorm:"type:varchar(20);not null;default:'client'" json:"role"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	//パスワード再設定（sha256のハッシュだけ保存）
	ResetTokenHash      *string    `gorm:"type:varchar(64);index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
