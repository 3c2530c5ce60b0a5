package service

import (
	"strings"
	"time"

	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

// AuditService 审计日志服务
type AuditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService 创建审计日志服务
func NewAuditService(auditRepo repository.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// RecordAuditInput 审计记录输入
type RecordAuditInput struct {
	ActorType  string
	ActorID    uint
	ActorName  string
	Action     string
	Resource   string
	ResourceID string
	RequestID  string
	Detail     models.JSON
}

// Record 写入一条审计日志
// 约定每个逻辑操作恰好记录一条，调用方失败重试时不应重复调用。
func (s *AuditService) Record(input RecordAuditInput) error {
	if s == nil || s.auditRepo == nil {
		return nil
	}
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return ErrInvalidInput
	}
	log := &models.AuditLog{
		ActorType:  strings.TrimSpace(input.ActorType),
		ActorID:    input.ActorID,
		ActorName:  strings.TrimSpace(input.ActorName),
		Action:     action,
		Resource:   strings.TrimSpace(input.Resource),
		ResourceID: strings.TrimSpace(input.ResourceID),
		RequestID:  strings.TrimSpace(input.RequestID),
		DetailJSON: input.Detail,
		CreatedAt:  time.Now(),
	}
	return s.auditRepo.Create(log)
}

// ListAuditInput 审计日志查询输入
type ListAuditInput struct {
	Page        int
	PageSize    int
	ActorType   string
	ActorID     uint
	Action      string
	Resource    string
	ResourceID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// List 审计日志列表
func (s *AuditService) List(input ListAuditInput) ([]models.AuditLog, int64, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize <= 0 || input.PageSize > 100 {
		input.PageSize = 20
	}
	return s.auditRepo.List(repository.AuditLogListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		ActorType:   input.ActorType,
		ActorID:     input.ActorID,
		Action:      input.Action,
		Resource:    input.Resource,
		ResourceID:  input.ResourceID,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
	})
}
