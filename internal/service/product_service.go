package service

import (
	"fmt"
	"strings"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo         repository.ProductRepository
	auditService *AuditService
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, auditService *AuditService) *ProductService {
	return &ProductService{repo: repo, auditService: auditService}
}

// SaveProductInput 创建/更新商品输入
type SaveProductInput struct {
	CategoryID  uint
	Slug        string
	Name        string
	Description string
	PriceAmount decimal.Decimal
	WeightKG    decimal.Decimal
	Stock       *int
	Images      []string
	Tags        []string
	IsActive    *bool
	SortOrder   int
	AdminID     uint
	AdminName   string
	RequestID   string
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   categoryID,
		Search:       search,
		OnlyActive:   true,
		WithCategory: true,
	})
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   categoryID,
		Search:       search,
		OnlyActive:   false,
		WithCategory: true,
	})
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input SaveProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSlugExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	stock := 0
	if input.Stock != nil {
		stock = *input.Stock
	}

	product := models.Product{
		CategoryID:  input.CategoryID,
		Slug:        input.Slug,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		PriceAmount: models.NewMoneyFromDecimal(input.PriceAmount),
		WeightKG:    input.WeightKG.Round(3),
		Stock:       stock,
		Images:      models.StringArray(input.Images),
		Tags:        models.StringArray(input.Tags),
		IsActive:    isActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(&product); err != nil {
		return nil, err
	}
	s.recordProductAudit(&product, constants.AuditActionProductSave, input)
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(id string, input SaveProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSlugExists
	}

	product.CategoryID = input.CategoryID
	product.Slug = input.Slug
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.PriceAmount = models.NewMoneyFromDecimal(input.PriceAmount)
	product.WeightKG = input.WeightKG.Round(3)
	product.Images = models.StringArray(input.Images)
	product.Tags = models.StringArray(input.Tags)
	product.SortOrder = input.SortOrder
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
		}
		product.Stock = *input.Stock
	}

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	s.recordProductAudit(product, constants.AuditActionProductSave, input)
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id string, adminID uint, adminName, requestID string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.recordProductAudit(product, constants.AuditActionProductDelete, SaveProductInput{
		AdminID: adminID, AdminName: adminName, RequestID: requestID,
	})
	return nil
}

func (s *ProductService) recordProductAudit(product *models.Product, action string, input SaveProductInput) {
	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    input.AdminID,
		ActorName:  input.AdminName,
		Action:     action,
		Resource:   "product",
		ResourceID: fmt.Sprintf("%d", product.ID),
		RequestID:  input.RequestID,
		Detail: models.JSON{
			"slug": product.Slug,
			"name": product.Name,
		},
	}); err != nil {
		logger.Warnw("product_audit_failed", "product_id", product.ID, "error", err)
	}
}

func validateProductInput(input *SaveProductInput) error {
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	if input.Slug == "" || strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: slug and name are required", ErrInvalidInput)
	}
	if input.CategoryID == 0 {
		return ErrCategoryNotFound
	}
	if input.PriceAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if input.WeightKG.IsNegative() {
		return fmt.Errorf("%w: weight cannot be negative", ErrInvalidInput)
	}
	if input.Stock != nil && *input.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return nil
}
