package models

import "time"

// AuthorizedUser 访问授权记录
type AuthorizedUser struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IdentityID  int64     `json:"identity_id" gorm:"uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"size:100"`
	Username    string    `json:"username" gorm:"size:64"`
	IsAdmin     bool      `json:"is_admin" gorm:"default:false;index"`
	AddedBy     int64     `json:"added_by"` // 授权人的身份 ID，引导管理员为自身
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 设置表名
func (AuthorizedUser) TableName() string {
	return "authorized_users"
}
