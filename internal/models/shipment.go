package models

import (
	"time"

	"gorm.io/gorm"
)

// Shipment 运单表（出货成功后与订单一对一）
type Shipment struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderID           uint           `gorm:"uniqueIndex;not null" json:"order_id"`                      // 订单ID
	AggregatorOrderNo string         `gorm:"type:varchar(100);index" json:"aggregator_order_no"`       // 聚合平台订单号
	ParcelNo          string         `gorm:"type:varchar(100)" json:"parcel_no"`                        // 聚合平台包裹号
	AWB               string         `gorm:"type:varchar(100);index" json:"awb"`                        // 运单号（Air Waybill）
	TrackingNumber    string         `gorm:"type:varchar(100);index;not null" json:"tracking_number"`   // 快递追踪号
	ServiceID         string         `gorm:"type:varchar(100)" json:"service_id"`                       // 快递服务ID
	CourierName       string         `gorm:"type:varchar(100)" json:"courier_name"`                     // 快递公司名称
	Status            string         `gorm:"index;not null" json:"status"`                              // 当前状态
	StatusDescription string         `gorm:"type:varchar(255)" json:"status_description"`               // 状态描述（聚合平台原文）
	LabelURL          string         `gorm:"type:varchar(500)" json:"label_url"`                        // 面单下载链接
	ShippingCost      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_cost"` // 实际运费
	EstimatedDelivery *time.Time     `json:"estimated_delivery"`                                        // 预计送达时间
	ActualDelivery    *time.Time     `json:"actual_delivery"`                                           // 实际送达时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	TrackingEvents []ShipmentTrackingEvent `gorm:"foreignKey:ShipmentID" json:"tracking_events,omitempty"` // 轨迹事件
}

// TableName 指定表名
func (Shipment) TableName() string {
	return "shipments"
}
