package repository

import (
	"errors"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByIDAndCustomer(id uint, customerID uint) (*models.Order, error)
	GetByOrderNoAndCustomer(orderNo string, customerID uint) (*models.Order, error)
	GetByIDs(ids []uint) ([]models.Order, error)
	ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListTrackable(limit int) ([]models.Order, error)
	ResolveReceiverEmailByOrderID(orderID uint) (string, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetail(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("Shipment").Preload("Shipment.TrackingEvents")
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndCustomer 获取客户订单详情
func (r *GormOrderRepository) GetByIDAndCustomer(id uint, customerID uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).Where("id = ? AND customer_id = ?", id, customerID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNoAndCustomer 获取客户订单详情（按订单号）
func (r *GormOrderRepository) GetByOrderNoAndCustomer(orderNo string, customerID uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).Where("order_no = ? AND customer_id = ?", orderNo, customerID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDs 批量获取订单（保留入参顺序）
func (r *GormOrderRepository) GetByIDs(ids []uint) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orders []models.Order
	if err := r.db.Preload("Items").Preload("Shipment").Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Order, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}
	sorted := make([]models.Order, 0, len(orders))
	for _, id := range ids {
		if order, ok := byID[id]; ok {
			sorted = append(sorted, order)
		}
	}
	return sorted, nil
}

// ListByCustomer 获取客户订单列表
func (r *GormOrderRepository) ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{}).Where("customer_id = ?", filter.CustomerID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no LIKE ?", "%"+filter.OrderNo+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := r.withDetail(query).Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.TrackingNumber != "" {
		query = query.Where("tracking_number = ?", filter.TrackingNumber)
	}
	if filter.CourierName != "" {
		query = query.Where("courier_name = ?", filter.CourierName)
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
	query = query.Preload("Items")
	if filter.WithShipment {
		query = query.Preload("Shipment")
	}
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListTrackable 获取待同步轨迹的订单
// 条件：已有快递单号、状态仍在运输途中、订单允许自动更新。
// 按更新时间升序返回，保证最久未同步的订单先被处理。
func (r *GormOrderRepository) ListTrackable(limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.
		Preload("Shipment").
		Where("tracking_number IS NOT NULL AND tracking_number != ''").
		Where("status NOT IN ?", []string{
			constants.OrderStatusDelivered,
			constants.OrderStatusCancelled,
			constants.OrderStatusPending,
		}).
		Where("auto_status_update = ?", true).
		Order("updated_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ResolveReceiverEmailByOrderID 根据订单 ID 解析状态通知的收件邮箱。
func (r *GormOrderRepository) ResolveReceiverEmailByOrderID(orderID uint) (string, error) {
	if orderID == 0 {
		return "", nil
	}

	var orderRow struct {
		CustomerID uint
	}
	if err := r.db.Model(&models.Order{}).
		Select("customer_id").
		Where("id = ?", orderID).
		Take(&orderRow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if orderRow.CustomerID == 0 {
		return "", nil
	}

	var customerRow struct {
		Email string
	}
	if err := r.db.Model(&models.Customer{}).
		Select("email").
		Where("id = ?", orderRow.CustomerID).
		Take(&customerRow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return customerRow.Email, nil
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}
