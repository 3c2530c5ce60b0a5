package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/courier/easyparcel"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/queue"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

// FulfillmentService 出货服务
// 向聚合平台提交运单、支付并落库运单记录。
type FulfillmentService struct {
	orderRepo      repository.OrderRepository
	shipmentRepo   repository.ShipmentRepository
	settingService *ShippingSettingService
	rateService    *RateService
	auditService   *AuditService
	queueClient    *queue.Client
	relayService   *WebhookRelayService
}

// NewFulfillmentService 创建出货服务
func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	shipmentRepo repository.ShipmentRepository,
	settingService *ShippingSettingService,
	rateService *RateService,
	auditService *AuditService,
	queueClient *queue.Client,
	relayService *WebhookRelayService,
) *FulfillmentService {
	return &FulfillmentService{
		orderRepo:      orderRepo,
		shipmentRepo:   shipmentRepo,
		settingService: settingService,
		rateService:    rateService,
		auditService:   auditService,
		queueClient:    queueClient,
		relayService:   relayService,
	}
}

// FulfillInput 出货输入
type FulfillInput struct {
	OrderID   uint
	ServiceID string // 留空时按策略解析
	AdminID   uint
	AdminName string
	RequestID string
}

// FulfillOutput 出货结果
type FulfillOutput struct {
	Shipment       *models.Shipment
	TrackingNumber string
	CourierName    string
	LabelURL       string
}

// fulfillableStatuses 允许出货的订单状态
var fulfillableStatuses = map[string]bool{
	constants.OrderStatusConfirmed:  true,
	constants.OrderStatusProcessing: true,
}

// Fulfill 对单个订单执行出货
// 流程：校验订单 -> 解析快递服务 -> 提交运单 -> 支付 -> 事务落库 -> 审计与通知。
// 聚合平台侧已扣款但落库失败时，运单信息会完整写入日志便于人工补录。
func (s *FulfillmentService) Fulfill(ctx context.Context, input FulfillInput) (*FulfillOutput, error) {
	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		logger.Errorw("fulfill_order_fetch_failed", "order_id", input.OrderID, "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Shipment != nil {
		return nil, ErrShipmentExists
	}
	if !fulfillableStatuses[order.Status] {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderStatusInvalid, order.OrderNo, order.Status)
	}
	if len(order.Items) == 0 {
		return nil, ErrOrderItemsInvalid
	}

	delivery := OrderDeliveryAddress(order)
	if !delivery.Complete() {
		return nil, fmt.Errorf("%w: order %s delivery address incomplete", ErrInvalidAddress, order.OrderNo)
	}
	weightKG := OrderWeightKG(order)
	if weightKG <= 0 {
		return nil, fmt.Errorf("%w: order %s has no billable weight", ErrInvalidWeight, order.OrderNo)
	}

	setting, cfg, err := s.settingService.ResolveConfig()
	if err != nil {
		return nil, err
	}

	serviceID, courierName, err := s.resolveCourierService(ctx, order, setting, input.ServiceID)
	if err != nil {
		return nil, err
	}

	outcome, err := easyparcel.SubmitOrder(ctx, cfg, easyparcel.SubmitRequest{
		ServiceID: serviceID,
		WeightKG:  weightKG,
		Content:   orderContentSummary(order),
		ValueMYR:  orderDeclaredValue(order),
		Reference: order.OrderNo,
		Pickup:    PickupAddress(setting),
		Delivery:  delivery,
	})
	if err != nil {
		logger.Errorw("fulfill_submit_failed", "order_no", order.OrderNo, "service_id", serviceID, "error", err)
		return nil, mapCourierError(err)
	}

	payment, err := easyparcel.PayOrder(ctx, cfg, outcome.OrderNumber)
	if err != nil {
		logger.Errorw("fulfill_payment_failed",
			"order_no", order.OrderNo,
			"aggregator_order_no", outcome.OrderNumber,
			"error", err,
		)
		return nil, mapCourierError(err)
	}

	shipment := &models.Shipment{
		OrderID:           order.ID,
		AggregatorOrderNo: payment.OrderNo,
		ParcelNo:          payment.ParcelNo,
		AWB:               payment.AWB,
		TrackingNumber:    payment.TrackingNumber,
		ServiceID:         serviceID,
		CourierName:       courierName,
		Status:            constants.OrderStatusReadyToShip,
		LabelURL:          payment.LabelURL,
		ShippingCost:      models.NewMoneyFromFloat(outcome.Price),
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.shipmentRepo.WithTx(tx).Create(shipment); err != nil {
			return err
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusReadyToShip, map[string]interface{}{
			"tracking_number": payment.TrackingNumber,
			"courier_name":    courierName,
		})
	})
	if err != nil {
		// 聚合平台已扣款，必须留下足够信息用于人工对账
		logger.Errorw("fulfill_persist_failed",
			"order_no", order.OrderNo,
			"aggregator_order_no", payment.OrderNo,
			"tracking_number", payment.TrackingNumber,
			"label_url", payment.LabelURL,
			"error", err,
		)
		return nil, ErrOrderUpdateFailed
	}

	logger.Infow("order_fulfilled",
		"order_no", order.OrderNo,
		"tracking_number", payment.TrackingNumber,
		"courier_name", courierName,
		"service_id", serviceID,
	)

	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    input.AdminID,
		ActorName:  input.AdminName,
		Action:     constants.AuditActionOrderFulfill,
		Resource:   "order",
		ResourceID: fmt.Sprintf("%d", order.ID),
		RequestID:  input.RequestID,
		Detail: models.JSON{
			"order_no":        order.OrderNo,
			"tracking_number": payment.TrackingNumber,
			"courier_name":    courierName,
			"service_id":      serviceID,
			"shipping_cost":   outcome.Price,
		},
	}); err != nil {
		logger.Warnw("fulfill_audit_failed", "order_no", order.OrderNo, "error", err)
	}

	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
			OrderID: order.ID,
			Scene:   constants.EmailSceneReadyToShip,
		}); err != nil {
			logger.Warnw("fulfill_email_enqueue_failed", "order_no", order.OrderNo, "error", err)
		}
	}
	s.relayService.NotifyOrderEvent("order.fulfilled", order.OrderNo, models.JSON{
		"tracking_number": payment.TrackingNumber,
		"courier_name":    courierName,
	})

	return &FulfillOutput{
		Shipment:       shipment,
		TrackingNumber: payment.TrackingNumber,
		CourierName:    courierName,
		LabelURL:       payment.LabelURL,
	}, nil
}

// resolveCourierService 解析本次出货使用的快递服务
// 操作员显式指定 > 客户下单选择 > 最便宜策略自动选取。
func (s *FulfillmentService) resolveCourierService(ctx context.Context, order *models.Order, setting *models.ShippingSetting, explicit string) (string, string, error) {
	serviceID := strings.TrimSpace(explicit)
	if serviceID == "" && setting.CourierStrategy == constants.CourierStrategyCustomerChoice {
		serviceID = strings.TrimSpace(order.SelectedCourierServiceID)
	}

	options, err := s.rateService.GetShippingOptionsForOrder(ctx, order)
	if err != nil {
		return "", "", err
	}
	if len(options) == 0 {
		return "", "", fmt.Errorf("%w: no courier service available for order %s", ErrUpstream, order.OrderNo)
	}

	if serviceID != "" {
		for _, option := range options {
			if option.ServiceID == serviceID {
				return option.ServiceID, option.CourierName, nil
			}
		}
		return "", "", fmt.Errorf("%w: service %s is not available for this route", ErrInvalidInput, serviceID)
	}

	if setting.CourierStrategy == constants.CourierStrategyManual {
		return "", "", fmt.Errorf("%w: courier strategy is manual, service_id is required", ErrInvalidInput)
	}

	// cheapest 策略，或客户未选择时的兜底
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Price < options[j].Price
	})
	return options[0].ServiceID, options[0].CourierName, nil
}

// mapCourierError 将聚合平台错误映射为服务层错误
func mapCourierError(err error) error {
	switch {
	case errors.Is(err, easyparcel.ErrInsufficientBalance):
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	case errors.Is(err, easyparcel.ErrPaymentRejected):
		return fmt.Errorf("%w: %v", ErrPaymentRejected, err)
	case errors.Is(err, easyparcel.ErrPaymentFailed):
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	case errors.Is(err, easyparcel.ErrInvalidAddress):
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	case errors.Is(err, easyparcel.ErrNotConfigured):
		return fmt.Errorf("%w: %v", ErrShippingNotConfigured, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

// orderContentSummary 拼接报关用的内容描述
func orderContentSummary(order *models.Order) string {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.ProductName)
	}
	summary := strings.Join(names, ", ")
	if len(summary) > 100 {
		summary = summary[:100]
	}
	if summary == "" {
		summary = "General merchandise"
	}
	return summary
}

// orderDeclaredValue 申报价值取商品小计
func orderDeclaredValue(order *models.Order) float64 {
	value, _ := order.SubtotalAmount.Float64()
	return value
}
