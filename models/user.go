package models

import "time"

// User 内部用户，首次交互时按聊天平台身份懒创建
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IdentityID  int64     `json:"identity_id" gorm:"uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"size:100"`
	Username    string    `json:"username" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
