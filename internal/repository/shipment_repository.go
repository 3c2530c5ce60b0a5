package repository

import (
	"errors"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"

	"gorm.io/gorm"
)

// ShipmentRepository 运单数据访问接口
type ShipmentRepository interface {
	Create(shipment *models.Shipment) error
	GetByID(id uint) (*models.Shipment, error)
	GetByOrderID(orderID uint) (*models.Shipment, error)
	GetByTrackingNumber(trackingNumber string) (*models.Shipment, error)
	Update(id uint, updates map[string]interface{}) error
	ReplaceAggregatorEvents(shipmentID uint, events []models.ShipmentTrackingEvent) error
	AppendEvent(event *models.ShipmentTrackingEvent) error
	ListEvents(shipmentID uint) ([]models.ShipmentTrackingEvent, error)
	WithTx(tx *gorm.DB) *GormShipmentRepository
}

// GormShipmentRepository GORM 实现
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓库
func NewShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentRepository) WithTx(tx *gorm.DB) *GormShipmentRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentRepository{db: tx}
}

// Create 创建运单
func (r *GormShipmentRepository) Create(shipment *models.Shipment) error {
	return r.db.Create(shipment).Error
}

// GetByID 根据 ID 获取运单
func (r *GormShipmentRepository) GetByID(id uint) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.Preload("TrackingEvents").First(&shipment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// GetByOrderID 根据订单 ID 获取运单
func (r *GormShipmentRepository) GetByOrderID(orderID uint) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.Preload("TrackingEvents").Where("order_id = ?", orderID).First(&shipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// GetByTrackingNumber 根据快递追踪号获取运单
func (r *GormShipmentRepository) GetByTrackingNumber(trackingNumber string) (*models.Shipment, error) {
	if trackingNumber == "" {
		return nil, nil
	}
	var shipment models.Shipment
	if err := r.db.Where("tracking_number = ?", trackingNumber).First(&shipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// Update 更新运单字段
func (r *GormShipmentRepository) Update(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Shipment{}).Where("id = ?", id).Updates(updates).Error
}

// ReplaceAggregatorEvents 整组替换聚合平台来源的轨迹事件
// 人工追加的事件不受影响。配合 WithTx 在一个事务内与运单更新一起提交。
func (r *GormShipmentRepository) ReplaceAggregatorEvents(shipmentID uint, events []models.ShipmentTrackingEvent) error {
	if shipmentID == 0 {
		return nil
	}
	if err := r.db.
		Where("shipment_id = ? AND source = ?", shipmentID, constants.TrackingEventSourceAggregator).
		Delete(&models.ShipmentTrackingEvent{}).Error; err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		events[i].ID = 0
		events[i].ShipmentID = shipmentID
		events[i].Source = constants.TrackingEventSourceAggregator
	}
	return r.db.Create(&events).Error
}

// AppendEvent 追加单条轨迹事件
func (r *GormShipmentRepository) AppendEvent(event *models.ShipmentTrackingEvent) error {
	if event == nil || event.ShipmentID == 0 {
		return nil
	}
	return r.db.Create(event).Error
}

// ListEvents 获取运单轨迹事件（按事件时间倒序）
func (r *GormShipmentRepository) ListEvents(shipmentID uint) ([]models.ShipmentTrackingEvent, error) {
	events := make([]models.ShipmentTrackingEvent, 0)
	if shipmentID == 0 {
		return events, nil
	}
	if err := r.db.
		Where("shipment_id = ?", shipmentID).
		Order("event_time desc, id desc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
