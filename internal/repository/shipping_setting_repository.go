package repository

import (
	"errors"

	"github.com/kedai-next/internal/models"

	"gorm.io/gorm"
)

// ShippingSettingRepository 物流设置数据访问接口
type ShippingSettingRepository interface {
	GetActive() (*models.ShippingSetting, error)
	GetByID(id uint) (*models.ShippingSetting, error)
	List() ([]models.ShippingSetting, error)
	Create(setting *models.ShippingSetting) error
	Update(setting *models.ShippingSetting) error
	Activate(id uint) error
	Delete(id uint) error
}

// GormShippingSettingRepository GORM 实现
type GormShippingSettingRepository struct {
	db *gorm.DB
}

// NewShippingSettingRepository 创建物流设置仓库
func NewShippingSettingRepository(db *gorm.DB) *GormShippingSettingRepository {
	return &GormShippingSettingRepository{db: db}
}

// GetActive 获取当前启用的物流设置
// 存在多行启用时取最新一行，未配置时返回 (nil, nil)。
func (r *GormShippingSettingRepository) GetActive() (*models.ShippingSetting, error) {
	var setting models.ShippingSetting
	if err := r.db.Where("is_active = ?", true).Order("id desc").First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// GetByID 根据 ID 获取物流设置
func (r *GormShippingSettingRepository) GetByID(id uint) (*models.ShippingSetting, error) {
	var setting models.ShippingSetting
	if err := r.db.First(&setting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// List 获取物流设置列表
func (r *GormShippingSettingRepository) List() ([]models.ShippingSetting, error) {
	settings := make([]models.ShippingSetting, 0)
	if err := r.db.Order("id desc").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Create 创建物流设置
func (r *GormShippingSettingRepository) Create(setting *models.ShippingSetting) error {
	return r.db.Create(setting).Error
}

// Update 更新物流设置
func (r *GormShippingSettingRepository) Update(setting *models.ShippingSetting) error {
	return r.db.Save(setting).Error
}

// Activate 启用指定设置并停用其余行
func (r *GormShippingSettingRepository) Activate(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ShippingSetting{}).
			Where("id != ?", id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ShippingSetting{}).
			Where("id = ?", id).
			Update("is_active", true).Error
	})
}

// Delete 删除物流设置（软删除）
func (r *GormShippingSettingRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.ShippingSetting{}, id).Error
}
