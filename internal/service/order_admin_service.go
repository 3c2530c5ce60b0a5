package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

// OrderAdminService 后台订单服务
type OrderAdminService struct {
	orderRepo    repository.OrderRepository
	shipmentRepo repository.ShipmentRepository
	productRepo  repository.ProductRepository
	auditService *AuditService
}

// NewOrderAdminService 创建后台订单服务
func NewOrderAdminService(
	orderRepo repository.OrderRepository,
	shipmentRepo repository.ShipmentRepository,
	productRepo repository.ProductRepository,
	auditService *AuditService,
) *OrderAdminService {
	return &OrderAdminService{
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		productRepo:  productRepo,
		auditService: auditService,
	}
}

// ListOrdersInput 后台订单列表输入
type ListOrdersInput struct {
	Page           int
	PageSize       int
	CustomerID     uint
	Status         string
	OrderNo        string
	TrackingNumber string
	CourierName    string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// List 后台订单列表
func (s *OrderAdminService) List(input ListOrdersInput) ([]models.Order, int64, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize <= 0 || input.PageSize > 100 {
		input.PageSize = 20
	}
	return s.orderRepo.ListAdmin(repository.OrderListFilter{
		Page:           input.Page,
		PageSize:       input.PageSize,
		CustomerID:     input.CustomerID,
		Status:         input.Status,
		OrderNo:        input.OrderNo,
		TrackingNumber: input.TrackingNumber,
		CourierName:    input.CourierName,
		CreatedFrom:    input.CreatedFrom,
		CreatedTo:      input.CreatedTo,
		WithShipment:   true,
	})
}

// Get 后台订单详情
func (s *OrderAdminService) Get(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ConfirmOrder 确认订单（pending -> confirmed）
func (s *OrderAdminService) ConfirmOrder(orderID uint, adminID uint, adminName, requestID string) error {
	order, err := s.Get(orderID)
	if err != nil {
		return err
	}
	if order.Status != constants.OrderStatusPending {
		return fmt.Errorf("%w: order %s is %s", ErrOrderStatusInvalid, order.OrderNo, order.Status)
	}
	if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusConfirmed, nil); err != nil {
		return ErrOrderUpdateFailed
	}
	s.recordOrderAudit(order, constants.AuditActionOrderBulkUpdate, adminID, adminName, requestID, models.JSON{
		"action": "confirm",
	})
	return nil
}

// BulkUpdateInput 批量操作输入
type BulkUpdateInput struct {
	OrderIDs          []uint
	Action            string
	TrackingNumbers   []string // 与 OrderIDs 一一对应，仅 mark_shipped 使用
	ShippingCarrier   string
	EstimatedDelivery *time.Time
	AdminID           uint
	AdminName         string
	RequestID         string
}

// BulkUpdateResult 批量操作结果
type BulkUpdateResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// BulkUpdate 批量更新订单
// 单个订单失败不影响其余订单；整个批次记录一条审计日志。
func (s *OrderAdminService) BulkUpdate(input BulkUpdateInput) (*BulkUpdateResult, error) {
	if len(input.OrderIDs) == 0 {
		return nil, fmt.Errorf("%w: order ids are required", ErrInvalidInput)
	}
	switch input.Action {
	case constants.BulkActionMarkProcessing, constants.BulkActionMarkShipped, constants.BulkActionCancelOrders:
	default:
		return nil, fmt.Errorf("%w: unknown bulk action %s", ErrInvalidInput, input.Action)
	}
	if input.Action == constants.BulkActionMarkShipped &&
		len(input.TrackingNumbers) != 0 && len(input.TrackingNumbers) != len(input.OrderIDs) {
		return nil, fmt.Errorf("%w: tracking numbers must match order ids", ErrInvalidInput)
	}

	orders, err := s.orderRepo.GetByIDs(input.OrderIDs)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	byID := make(map[uint]*models.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	result := &BulkUpdateResult{}
	for i, orderID := range input.OrderIDs {
		order, ok := byID[orderID]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("order %d: not found", orderID))
			continue
		}

		var opErr error
		switch input.Action {
		case constants.BulkActionMarkProcessing:
			opErr = s.markProcessing(order)
		case constants.BulkActionMarkShipped:
			trackingNumber := ""
			if i < len(input.TrackingNumbers) {
				trackingNumber = strings.TrimSpace(input.TrackingNumbers[i])
			}
			opErr = s.markShipped(order, trackingNumber, input.ShippingCarrier, input.EstimatedDelivery)
		case constants.BulkActionCancelOrders:
			opErr = s.cancelOrder(order)
		}
		if opErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", order.OrderNo, opErr))
			continue
		}
		result.Updated++
	}

	logger.Infow("orders_bulk_updated",
		"action", input.Action,
		"requested", len(input.OrderIDs),
		"updated", result.Updated,
		"failed", result.Failed,
	)
	if err := s.auditService.Record(RecordAuditInput{
		ActorType: constants.AuditActorAdmin,
		ActorID:   input.AdminID,
		ActorName: input.AdminName,
		Action:    constants.AuditActionOrderBulkUpdate,
		Resource:  "order",
		RequestID: input.RequestID,
		Detail: models.JSON{
			"action":    input.Action,
			"order_ids": input.OrderIDs,
			"updated":   result.Updated,
			"failed":    result.Failed,
		},
	}); err != nil {
		logger.Warnw("order_bulk_audit_failed", "action", input.Action, "error", err)
	}

	return result, nil
}

func (s *OrderAdminService) markProcessing(order *models.Order) error {
	if !constants.IsForwardOrderTransition(order.Status, constants.OrderStatusProcessing) {
		return fmt.Errorf("%w: cannot move %s order to processing", ErrOrderStatusInvalid, order.Status)
	}
	if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusProcessing, nil); err != nil {
		return ErrOrderUpdateFailed
	}
	return nil
}

// markShipped 人工标记发货
// 未经聚合平台出货的订单也要补一条运单记录，保持单号必有运单的约束。
func (s *OrderAdminService) markShipped(order *models.Order, trackingNumber, carrier string, estimatedDelivery *time.Time) error {
	if !constants.IsForwardOrderTransition(order.Status, constants.OrderStatusInTransit) {
		return fmt.Errorf("%w: cannot mark %s order as shipped", ErrOrderStatusInvalid, order.Status)
	}
	if trackingNumber == "" {
		trackingNumber = order.TrackingNumber
	}
	if trackingNumber == "" {
		return fmt.Errorf("%w: tracking number is required to mark shipped", ErrInvalidInput)
	}

	return models.DB.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		if shipment == nil {
			shipment = &models.Shipment{
				OrderID:           order.ID,
				TrackingNumber:    trackingNumber,
				CourierName:       carrier,
				Status:            constants.OrderStatusInTransit,
				EstimatedDelivery: estimatedDelivery,
			}
			if err := s.shipmentRepo.WithTx(tx).Create(shipment); err != nil {
				return err
			}
		} else {
			updates := map[string]interface{}{
				"status":          constants.OrderStatusInTransit,
				"tracking_number": trackingNumber,
			}
			if carrier != "" {
				updates["courier_name"] = carrier
			}
			if estimatedDelivery != nil {
				updates["estimated_delivery"] = *estimatedDelivery
			}
			if err := s.shipmentRepo.WithTx(tx).Update(shipment.ID, updates); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"tracking_number": trackingNumber,
		}
		if carrier != "" {
			updates["courier_name"] = carrier
		}
		if order.ShippedAt == nil {
			updates["shipped_at"] = time.Now()
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusInTransit, updates)
	})
}

// cancelOrder 取消订单并回补库存
func (s *OrderAdminService) cancelOrder(order *models.Order) error {
	if order.Status == constants.OrderStatusCancelled {
		return fmt.Errorf("%w: order already cancelled", ErrOrderStatusInvalid)
	}
	if order.Status == constants.OrderStatusDelivered {
		return fmt.Errorf("%w: delivered order cannot be cancelled", ErrOrderStatusInvalid)
	}

	return models.DB.Transaction(func(tx *gorm.DB) error {
		txProductRepo := s.productRepo.WithTx(tx)
		for _, item := range order.Items {
			if _, err := txProductRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCancelled, map[string]interface{}{
			"cancelled_at": time.Now(),
		})
	})
}

// AppendTrackingEventInput 人工追加轨迹事件输入
type AppendTrackingEventInput struct {
	OrderID     uint
	EventCode   string
	EventName   string
	Description string
	Location    string
	EventTime   *time.Time
	AdminID     uint
	AdminName   string
	RequestID   string
}

// AppendTrackingEvent 人工追加轨迹事件
// 人工事件来源标记为 manual，不会被轮询任务替换。
func (s *OrderAdminService) AppendTrackingEvent(input AppendTrackingEventInput) (*models.ShipmentTrackingEvent, error) {
	if strings.TrimSpace(input.EventName) == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}

	shipment, err := s.shipmentRepo.GetByOrderID(input.OrderID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	eventTime := time.Now()
	if input.EventTime != nil {
		eventTime = *input.EventTime
	}
	event := &models.ShipmentTrackingEvent{
		ShipmentID:  shipment.ID,
		Source:      constants.TrackingEventSourceManual,
		EventCode:   strings.TrimSpace(input.EventCode),
		EventName:   strings.TrimSpace(input.EventName),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		EventTime:   eventTime,
	}
	if err := s.shipmentRepo.AppendEvent(event); err != nil {
		return nil, err
	}

	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    input.AdminID,
		ActorName:  input.AdminName,
		Action:     constants.AuditActionTrackingEventManual,
		Resource:   "shipment",
		ResourceID: fmt.Sprintf("%d", shipment.ID),
		RequestID:  input.RequestID,
		Detail: models.JSON{
			"order_id":   input.OrderID,
			"event_name": event.EventName,
		},
	}); err != nil {
		logger.Warnw("tracking_event_audit_failed", "order_id", input.OrderID, "error", err)
	}

	return event, nil
}

// SetAutoStatusUpdate 单个订单的自动更新开关
// 关闭后该订单永久退出轮询任务的自动状态推进。
func (s *OrderAdminService) SetAutoStatusUpdate(orderID uint, enabled bool, adminID uint, adminName, requestID string) error {
	order, err := s.Get(orderID)
	if err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(order.ID, order.Status, map[string]interface{}{
		"auto_status_update": enabled,
	}); err != nil {
		return ErrOrderUpdateFailed
	}
	s.recordOrderAudit(order, constants.AuditActionOrderBulkUpdate, adminID, adminName, requestID, models.JSON{
		"action":             "set_auto_status_update",
		"auto_status_update": enabled,
	})
	return nil
}

func (s *OrderAdminService) recordOrderAudit(order *models.Order, action string, adminID uint, adminName, requestID string, detail models.JSON) {
	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    adminID,
		ActorName:  adminName,
		Action:     action,
		Resource:   "order",
		ResourceID: fmt.Sprintf("%d", order.ID),
		RequestID:  requestID,
		Detail:     detail,
	}); err != nil {
		logger.Warnw("order_audit_failed", "order_no", order.OrderNo, "error", err)
	}
}
