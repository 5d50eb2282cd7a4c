package domain

import "time"

// User 表示可登录的账户。
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null"`
	PasswordHash string    `gorm:"type:text;not null"` // bcrypt 哈希
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Profile 保存用户的公开资料，成员列表通过它解析显示名称。
type Profile struct {
	UserID      string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(191);not null" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
