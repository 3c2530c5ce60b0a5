package models

import (
	"time"

	"gorm.io/gorm"
)

// Address 收货地址表（马来西亚地址结构）
type Address struct {
	ID         uint           `gorm:"primarykey" json:"id"`                               // 主键
	CustomerID uint           `gorm:"index;not null" json:"customer_id"`                  // 客户ID
	Label      string         `gorm:"type:varchar(50)" json:"label"`                      // 地址标签（home/office）
	Name       string         `gorm:"not null" json:"name"`                               // 收件人姓名
	Phone      string         `gorm:"type:varchar(30);not null" json:"phone"`             // 联系电话
	Line1      string         `gorm:"not null" json:"line1"`                              // 地址行一
	Line2      string         `gorm:"default:''" json:"line2"`                            // 地址行二
	City       string         `gorm:"not null" json:"city"`                               // 城市
	Postcode   string         `gorm:"type:varchar(10);not null;index" json:"postcode"`    // 邮编（5 位数字）
	State      string         `gorm:"type:varchar(10);not null" json:"state"`             // 州代码（如 sgr/kul）
	Country    string         `gorm:"type:varchar(5);not null;default:'MY'" json:"country"` // 国家代码
	IsDefault  bool           `gorm:"default:false;index" json:"is_default"`              // 是否默认地址
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}
