package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByEmail(email string) (*models.Customer, error)
	GetByID(id uint) (*models.Customer, error)
	ListByIDs(ids []uint) ([]models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	BatchUpdateStatus(customerIDs []uint, status string) error
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// GetByEmail 根据邮箱获取客户
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// ListByIDs 批量获取客户
func (r *GormCustomerRepository) ListByIDs(ids []uint) ([]models.Customer, error) {
	if len(ids) == 0 {
		return []models.Customer{}, nil
	}
	var customers []models.Customer
	if err := r.db.Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update 更新客户
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// List 客户列表
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("email LIKE ? OR display_name LIKE ? OR phone LIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var customers []models.Customer
	if err := query.Order("id DESC").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// BatchUpdateStatus 批量更新客户状态
// 禁用时同步递增 token_version，使已签发的客户端 Token 全部失效。
func (r *GormCustomerRepository) BatchUpdateStatus(customerIDs []uint, status string) error {
	if len(customerIDs) == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if strings.ToLower(strings.TrimSpace(status)) == constants.CustomerStatusDisabled {
		updates["token_version"] = gorm.Expr("token_version + 1")
	}
	return r.db.Model(&models.Customer{}).Where("id IN ?", customerIDs).Updates(updates).Error
}
