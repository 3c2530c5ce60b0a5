package repository

import (
	"errors"

	"github.com/kedai-next/internal/models"

	"gorm.io/gorm"
)

// AddressRepository 收货地址数据访问接口
type AddressRepository interface {
	ListByCustomer(customerID uint) ([]models.Address, error)
	GetByIDAndCustomer(id uint, customerID uint) (*models.Address, error)
	GetDefault(customerID uint) (*models.Address, error)
	Create(address *models.Address) error
	Update(address *models.Address) error
	Delete(id uint, customerID uint) error
	SetDefault(id uint, customerID uint) error
}

// GormAddressRepository GORM 实现
type GormAddressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建收货地址仓库
func NewAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// ListByCustomer 获取客户的地址簿（默认地址在前）
func (r *GormAddressRepository) ListByCustomer(customerID uint) ([]models.Address, error) {
	addresses := make([]models.Address, 0)
	if customerID == 0 {
		return addresses, nil
	}
	if err := r.db.
		Where("customer_id = ?", customerID).
		Order("is_default DESC, id DESC").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// GetByIDAndCustomer 获取客户的单个地址
func (r *GormAddressRepository) GetByIDAndCustomer(id uint, customerID uint) (*models.Address, error) {
	var address models.Address
	if err := r.db.Where("id = ? AND customer_id = ?", id, customerID).First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

// GetDefault 获取客户默认地址
func (r *GormAddressRepository) GetDefault(customerID uint) (*models.Address, error) {
	var address models.Address
	if err := r.db.
		Where("customer_id = ? AND is_default = ?", customerID, true).
		First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

// Create 创建地址
func (r *GormAddressRepository) Create(address *models.Address) error {
	return r.db.Create(address).Error
}

// Update 更新地址
func (r *GormAddressRepository) Update(address *models.Address) error {
	return r.db.Save(address).Error
}

// Delete 删除地址（软删除）
func (r *GormAddressRepository) Delete(id uint, customerID uint) error {
	if id == 0 || customerID == 0 {
		return nil
	}
	return r.db.Where("id = ? AND customer_id = ?", id, customerID).Delete(&models.Address{}).Error
}

// SetDefault 设置默认地址并清除同客户其余默认标记
func (r *GormAddressRepository) SetDefault(id uint, customerID uint) error {
	if id == 0 || customerID == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Address{}).
			Where("customer_id = ? AND id != ?", customerID, id).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Address{}).
			Where("id = ? AND customer_id = ?", id, customerID).
			Update("is_default", true).Error
	})
}
