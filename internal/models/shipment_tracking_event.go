package models

import "time"

// ShipmentTrackingEvent 运单轨迹事件表（追加式日志）
// 轮询任务在单个事务内整组替换聚合平台来源的事件；人工事件由操作员追加。
type ShipmentTrackingEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`                        // 主键
	ShipmentID  uint      `gorm:"index;not null" json:"shipment_id"`           // 运单ID
	EventCode   string    `gorm:"type:varchar(50);index" json:"event_code"`    // 事件代码
	EventName   string    `gorm:"type:varchar(100)" json:"event_name"`         // 事件名称
	Description string    `gorm:"type:varchar(500)" json:"description"`        // 事件描述
	Location    string    `gorm:"type:varchar(255)" json:"location"`           // 事件地点
	EventTime   time.Time `gorm:"index" json:"event_time"`                     // 事件发生时间
	Source      string    `gorm:"type:varchar(20);index;not null" json:"source"` // 来源（easyparcel/manual）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (ShipmentTrackingEvent) TableName() string {
	return "shipment_tracking_events"
}
