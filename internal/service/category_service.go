package service

import (
	"fmt"
	"strings"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

// CategoryService 分类业务服务
type CategoryService struct {
	repo         repository.CategoryRepository
	auditService *AuditService
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository, auditService *AuditService) *CategoryService {
	return &CategoryService{repo: repo, auditService: auditService}
}

// SaveCategoryInput 创建/更新分类输入
type SaveCategoryInput struct {
	Slug      string
	Name      string
	Icon      string
	SortOrder int
	AdminID   uint
	AdminName string
	RequestID string
}

// List 分类列表
func (s *CategoryService) List() ([]models.Category, error) {
	return s.repo.List()
}

// Get 分类详情
func (s *CategoryService) Get(id string) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// Create 创建分类
func (s *CategoryService) Create(input SaveCategoryInput) (*models.Category, error) {
	if err := validateCategoryInput(&input); err != nil {
		return nil, err
	}
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCategorySlugUsed
	}

	category := models.Category{
		Slug:      input.Slug,
		Name:      strings.TrimSpace(input.Name),
		Icon:      strings.TrimSpace(input.Icon),
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(&category); err != nil {
		return nil, err
	}
	s.recordCategoryAudit(&category, constants.AuditActionCategorySave, input)
	return &category, nil
}

// Update 更新分类
func (s *CategoryService) Update(id string, input SaveCategoryInput) (*models.Category, error) {
	if err := validateCategoryInput(&input); err != nil {
		return nil, err
	}
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCategorySlugUsed
	}

	category.Slug = input.Slug
	category.Name = strings.TrimSpace(input.Name)
	category.Icon = strings.TrimSpace(input.Icon)
	category.SortOrder = input.SortOrder
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	s.recordCategoryAudit(category, constants.AuditActionCategorySave, input)
	return category, nil
}

// Delete 删除分类
// 仍有商品挂在分类下时拒绝删除。
func (s *CategoryService) Delete(id string, adminID uint, adminName, requestID string) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := s.repo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.recordCategoryAudit(category, constants.AuditActionCategoryDelete, SaveCategoryInput{
		AdminID: adminID, AdminName: adminName, RequestID: requestID,
	})
	return nil
}

func (s *CategoryService) recordCategoryAudit(category *models.Category, action string, input SaveCategoryInput) {
	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    input.AdminID,
		ActorName:  input.AdminName,
		Action:     action,
		Resource:   "category",
		ResourceID: fmt.Sprintf("%d", category.ID),
		RequestID:  input.RequestID,
		Detail: models.JSON{
			"slug": category.Slug,
			"name": category.Name,
		},
	}); err != nil {
		logger.Warnw("category_audit_failed", "category_id", category.ID, "error", err)
	}
}

func validateCategoryInput(input *SaveCategoryInput) error {
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	if input.Slug == "" || strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: slug and name are required", ErrInvalidInput)
	}
	return nil
}
