package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/queue"
	"github.com/kedai-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 客户侧订单服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	addressRepo repository.AddressRepository
	rateService *RateService
	queueClient *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	rateService *RateService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		rateService: rateService,
		queueClient: queueClient,
	}
}

// CreateOrderItemInput 创建订单项输入
type CreateOrderItemInput struct {
	ProductID uint
	Quantity  int
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	CustomerID       uint
	AddressID        uint
	Items            []CreateOrderItemInput
	CourierServiceID string // 客户在询价结果中选中的快递服务，可留空由后台决定
	ClientIP         string
}

// CreateOrder 创建订单
// 收货地址在下单时固化为快照；运费按客户选中的快递服务实时询价取得。
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == 0 || len(input.Items) == 0 {
		return nil, ErrOrderItemsInvalid
	}

	address, err := s.addressRepo.GetByIDAndCustomer(input.AddressID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}

	products, items, subtotal, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNo:                  generateOrderNo(),
		CustomerID:               input.CustomerID,
		Status:                   constants.OrderStatusPending,
		Currency:                 constants.DefaultCurrency,
		SubtotalAmount:           models.NewMoneyFromDecimal(subtotal),
		SelectedCourierServiceID: strings.TrimSpace(input.CourierServiceID),
		AutoStatusUpdate:         true,
		ClientIP:                 input.ClientIP,
		ShipName:                 address.Name,
		ShipPhone:                address.Phone,
		ShipLine1:                address.Line1,
		ShipLine2:                address.Line2,
		ShipCity:                 address.City,
		ShipPostcode:             address.Postcode,
		ShipState:                address.State,
		ShipCountry:              address.Country,
	}

	shipping, err := s.resolveShippingAmount(ctx, order, items)
	if err != nil {
		return nil, err
	}
	order.ShippingAmount = models.NewMoneyFromDecimal(shipping)
	order.TotalAmount = models.NewMoneyFromDecimal(subtotal.Add(shipping))

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		txProductRepo := s.productRepo.WithTx(tx)
		for i, item := range input.Items {
			affected, err := txProductRepo.DeductStock(item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("%w: product %s", ErrStockInsufficient, products[i].Name)
			}
		}
		return s.orderRepo.WithTx(tx).Create(order, items)
	})
	if err != nil {
		if errors.Is(err, ErrStockInsufficient) {
			return nil, err
		}
		logger.Errorw("order_create_failed", "customer_id", input.CustomerID, "error", err)
		return nil, ErrOrderCreateFailed
	}

	logger.Infow("order_created",
		"order_no", order.OrderNo,
		"customer_id", order.CustomerID,
		"total_amount", order.TotalAmount.StringFixed(2),
	)

	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
			OrderID: order.ID,
			Scene:   constants.EmailSceneOrderCreated,
		}); err != nil {
			logger.Warnw("order_email_enqueue_failed", "order_no", order.OrderNo, "error", err)
		}
	}

	return order, nil
}

// buildOrderItems 加载商品并生成订单项快照
func (s *OrderService) buildOrderItems(inputs []CreateOrderItemInput) ([]models.Product, []models.OrderItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(inputs))
	for _, item := range inputs {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, nil, decimal.Zero, ErrOrderItemsInvalid
		}
		ids = append(ids, item.ProductID)
	}

	loaded, err := s.productRepo.ListByIDs(ids)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	byID := make(map[uint]*models.Product, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID] = &loaded[i]
	}

	products := make([]models.Product, 0, len(inputs))
	items := make([]models.OrderItem, 0, len(inputs))
	subtotal := decimal.Zero
	for _, input := range inputs {
		product, ok := byID[input.ProductID]
		if !ok || !product.IsActive {
			return nil, nil, decimal.Zero, fmt.Errorf("%w: product %d", ErrProductNotFound, input.ProductID)
		}
		lineTotal := product.PriceAmount.Mul(decimal.NewFromInt(int64(input.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.PriceAmount,
			Quantity:    input.Quantity,
			WeightKG:    product.WeightKG,
			TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
		})
		products = append(products, *product)
		subtotal = subtotal.Add(lineTotal)
	}
	return products, items, subtotal, nil
}

// resolveShippingAmount 按选中的快递服务取运费
// 未选择服务时运费计 0，出货阶段按策略补收或人工处理。
func (s *OrderService) resolveShippingAmount(ctx context.Context, order *models.Order, items []models.OrderItem) (decimal.Decimal, error) {
	if order.SelectedCourierServiceID == "" {
		return decimal.Zero, nil
	}

	weight := decimal.Zero
	for _, item := range items {
		weight = weight.Add(item.WeightKG.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	weightKG, _ := weight.Float64()

	options, err := s.rateService.GetRates(ctx, OrderDeliveryAddress(order), weightKG)
	if err != nil {
		return decimal.Zero, err
	}
	for _, option := range options {
		if option.ServiceID == order.SelectedCourierServiceID {
			return decimal.NewFromFloat(option.Price), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: service %s is not available for this address", ErrInvalidInput, order.SelectedCourierServiceID)
}

// QuoteShippingRatesInput 下单前运费询价输入
type QuoteShippingRatesInput struct {
	CustomerID uint
	AddressID  uint
	Items      []CreateOrderItemInput
}

// QuoteShippingRates 按客户地址与购物车重量询价
// 不落库，仅用于下单前展示可选快递服务与运费。
func (s *OrderService) QuoteShippingRates(ctx context.Context, input QuoteShippingRatesInput) ([]CourierOption, error) {
	if input.CustomerID == 0 || len(input.Items) == 0 {
		return nil, ErrOrderItemsInvalid
	}

	address, err := s.addressRepo.GetByIDAndCustomer(input.AddressID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}

	_, items, _, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	weight := decimal.Zero
	for _, item := range items {
		weight = weight.Add(item.WeightKG.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	weightKG, _ := weight.Float64()

	return s.rateService.GetRates(ctx, CustomerDeliveryAddress(address), weightKG)
}

// GetCustomerOrder 客户查询订单详情
func (s *OrderService) GetCustomerOrder(orderID, customerID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndCustomer(orderID, customerID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListCustomerOrdersInput 客户订单列表输入
type ListCustomerOrdersInput struct {
	CustomerID uint
	Page       int
	PageSize   int
	Status     string
}

// ListCustomerOrders 客户订单列表
func (s *OrderService) ListCustomerOrders(input ListCustomerOrdersInput) ([]models.Order, int64, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize <= 0 || input.PageSize > 100 {
		input.PageSize = 20
	}
	return s.orderRepo.ListByCustomer(repository.OrderListFilter{
		Page:       input.Page,
		PageSize:   input.PageSize,
		CustomerID: input.CustomerID,
		Status:     input.Status,
	})
}

// generateOrderNo 生成订单编号（日期前缀 + 随机数字）
func generateOrderNo() string {
	const digits = "0123456789"
	suffix := make([]byte, 8)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % 10)
		}
		suffix[i] = digits[n.Int64()]
	}
	return fmt.Sprintf("KD%s%s", time.Now().Format("20060102"), string(suffix))
}
