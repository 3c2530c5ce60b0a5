package models

import "time"

// AuditLog 审计日志表
// 说明：记录后台与系统的变更操作。约定每个逻辑操作恰好写入一条（重试不重复记录）。
type AuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ActorType  string    `gorm:"type:varchar(20);index;not null" json:"actor_type"`           // 操作者类型（admin/system）
	ActorID    uint      `gorm:"index;not null;default:0" json:"actor_id"`                    // 操作者ID（system 为 0）
	ActorName  string    `gorm:"type:varchar(100);index;not null;default:''" json:"actor_name"` // 操作者名称
	Action     string    `gorm:"type:varchar(100);index;not null" json:"action"`              // 动作
	Resource   string    `gorm:"type:varchar(100);index;not null;default:''" json:"resource"` // 资源类型
	ResourceID string    `gorm:"type:varchar(64);index;not null;default:''" json:"resource_id"` // 资源ID
	RequestID  string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`  // 请求ID
	DetailJSON JSON      `gorm:"type:json" json:"detail"`                                     // 明细
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
