package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户表
type Customer struct {
	ID           uint           `gorm:"primarykey" json:"id"`              // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"` // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                 // 密码哈希（不返回给前端）
	DisplayName  string         `gorm:"default:''" json:"display_name"`    // 昵称
	Phone        string         `gorm:"type:varchar(30)" json:"phone"`     // 联系电话
	Status       string         `gorm:"default:'active'" json:"status"`    // 账号状态
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`       // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at"`                     // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`           // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间

	Addresses []Address `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"` // 收货地址
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
