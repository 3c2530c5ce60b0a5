package models

import (
	"time"

	"gorm.io/gorm"
)

// ShippingSetting 物流设置表（单活跃行，保存聚合平台凭证与行为开关）
type ShippingSetting struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                                // 主键
	APIKey                string         `gorm:"not null" json:"-"`                                                   // 聚合平台 API Key（不返回给前端）
	Environment           string         `gorm:"type:varchar(20);not null;default:'sandbox'" json:"environment"`      // 环境（sandbox/production）
	CourierStrategy       string         `gorm:"type:varchar(30);not null;default:'customer_choice'" json:"courier_strategy"` // 快递选择策略
	AutoUpdateOrderStatus bool           `gorm:"not null;default:true" json:"auto_update_order_status"`               // 全局自动更新订单状态开关
	IsActive              bool           `gorm:"not null;default:true;index" json:"is_active"`                        // 是否启用
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                             // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                             // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                                      // 软删除时间

	// 取件地址（商家仓库）
	PickupName     string `gorm:"not null" json:"pickup_name"`                                 // 取件联系人
	PickupPhone    string `gorm:"type:varchar(30);not null" json:"pickup_phone"`               // 取件电话
	PickupLine1    string `gorm:"not null" json:"pickup_line1"`                                // 取件地址行一
	PickupLine2    string `gorm:"default:''" json:"pickup_line2"`                              // 取件地址行二
	PickupCity     string `gorm:"not null" json:"pickup_city"`                                 // 取件城市
	PickupPostcode string `gorm:"type:varchar(10);not null" json:"pickup_postcode"`            // 取件邮编
	PickupState    string `gorm:"type:varchar(10);not null" json:"pickup_state"`               // 取件州代码
	PickupCountry  string `gorm:"type:varchar(5);not null;default:'MY'" json:"pickup_country"` // 取件国家代码
}

// TableName 指定表名
func (ShippingSetting) TableName() string {
	return "shipping_settings"
}
