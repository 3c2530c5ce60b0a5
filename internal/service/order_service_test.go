package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

func newOrderService(db *gorm.DB, baseURL string) *OrderService {
	return NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewAddressRepository(db),
		NewRateService(newSettingService(db, baseURL)),
		nil,
	)
}

func seedAddress(t *testing.T, db *gorm.DB, customerID uint) *models.Address {
	t.Helper()
	address := &models.Address{
		CustomerID: customerID,
		Label:      "home",
		Name:       "Aisyah",
		Phone:      "0198765432",
		Line1:      "8 Jalan Tun Razak",
		City:       "Kuala Lumpur",
		Postcode:   "50400",
		State:      "kul",
		Country:    "MY",
		IsDefault:  true,
	}
	if err := db.Create(address).Error; err != nil {
		t.Fatalf("seed address failed: %v", err)
	}
	return address
}

func TestCreateOrderSnapshotsAddressAndDeductsStock(t *testing.T) {
	db := setupServiceDB(t)
	address := seedAddress(t, db, 7)
	product := seedProduct(t, db, "kopi-o", 10, 0.5)

	svc := newOrderService(db, "")
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 7,
		AddressID:  address.ID,
		Items:      []CreateOrderItemInput{{ProductID: product.ID, Quantity: 3}},
		ClientIP:   "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if !strings.HasPrefix(order.OrderNo, "KD") || len(order.OrderNo) != 18 {
		t.Fatalf("unexpected order no %q", order.OrderNo)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("new order must be pending, got %s", order.Status)
	}
	if order.Currency != constants.DefaultCurrency {
		t.Fatalf("unexpected currency %q", order.Currency)
	}
	if order.ShipName != "Aisyah" || order.ShipPostcode != "50400" || order.ShipState != "kul" {
		t.Fatalf("address must be snapshotted, got %+v", order)
	}
	if got := order.SubtotalAmount.StringFixed(2); got != "150.00" {
		t.Fatalf("subtotal want 150.00 got %s", got)
	}
	if got := order.ShippingAmount.StringFixed(2); got != "0.00" {
		t.Fatalf("no courier selected means zero shipping, got %s", got)
	}
	if got := order.TotalAmount.StringFixed(2); got != "150.00" {
		t.Fatalf("total want 150.00 got %s", got)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 7 {
		t.Fatalf("stock want 7 got %d", reloaded.Stock)
	}

	var items []models.OrderItem
	if err := db.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		t.Fatalf("load items failed: %v", err)
	}
	if len(items) != 1 || items[0].ProductName != reloaded.Name || items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestCreateOrderWithSelectedCourierCharges(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	address := seedAddress(t, db, 7)
	product := seedProduct(t, db, "teh-tarik", 10, 1)

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
	})

	svc := newOrderService(db, gatewayBaseURL(server))
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:       7,
		AddressID:        address.ID,
		Items:            []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		CourierServiceID: "EP-CS-ECON",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if got := order.ShippingAmount.StringFixed(2); got != "8.90" {
		t.Fatalf("shipping want 8.90 got %s", got)
	}
	if got := order.TotalAmount.StringFixed(2); got != "58.90" {
		t.Fatalf("total want 58.90 got %s", got)
	}
	if order.SelectedCourierServiceID != "EP-CS-ECON" {
		t.Fatalf("selected service must be stored, got %q", order.SelectedCourierServiceID)
	}
}

func TestCreateOrderRejectsUnavailableCourier(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	address := seedAddress(t, db, 7)
	product := seedProduct(t, db, "nasi-lemak", 10, 1)

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
	})

	svc := newOrderService(db, gatewayBaseURL(server))
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:       7,
		AddressID:        address.ID,
		Items:            []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		CourierServiceID: "EP-CS-GONE",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput got %v", err)
	}
}

func TestCreateOrderOversellRollsBackEverything(t *testing.T) {
	db := setupServiceDB(t)
	address := seedAddress(t, db, 7)
	plenty := seedProduct(t, db, "kuih", 10, 0.2)
	scarce := seedProduct(t, db, "durian", 1, 2)

	svc := newOrderService(db, "")
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 7,
		AddressID:  address.ID,
		Items: []CreateOrderItemInput{
			{ProductID: plenty.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 5},
		},
	})
	if !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("want ErrStockInsufficient got %v", err)
	}
	if !strings.Contains(err.Error(), scarce.Name) {
		t.Fatalf("error must name the product, got %v", err)
	}

	// 整个事务回滚，先扣的库存也要恢复
	var reloaded models.Product
	if err := db.First(&reloaded, plenty.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 {
		t.Fatalf("rolled back stock want 10 got %d", reloaded.Stock)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("no order row should survive the rollback")
	}
}

func TestCreateOrderRejectsInactiveProduct(t *testing.T) {
	db := setupServiceDB(t)
	address := seedAddress(t, db, 7)
	product := seedProduct(t, db, "retired", 10, 0.2)
	if err := db.Model(product).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	svc := newOrderService(db, "")
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 7,
		AddressID:  address.ID,
		Items:      []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound got %v", err)
	}
}

func TestCreateOrderRejectsForeignAddress(t *testing.T) {
	db := setupServiceDB(t)
	address := seedAddress(t, db, 99)
	product := seedProduct(t, db, "kaya", 10, 0.2)

	svc := newOrderService(db, "")
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 7,
		AddressID:  address.ID,
		Items:      []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("want ErrAddressNotFound got %v", err)
	}
}

func TestQuoteShippingRatesUsesCartWeight(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	address := seedAddress(t, db, 7)
	product := seedProduct(t, db, "cendol-kit", 10, 0.5)

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
	})

	svc := newOrderService(db, gatewayBaseURL(server))
	options, err := svc.QuoteShippingRates(context.Background(), QuoteShippingRatesInput{
		CustomerID: 7,
		AddressID:  address.ID,
		Items:      []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("quote rates failed: %v", err)
	}
	if len(options) == 0 {
		t.Fatalf("expected courier options")
	}

	_, err = svc.QuoteShippingRates(context.Background(), QuoteShippingRatesInput{
		CustomerID: 8,
		AddressID:  address.ID,
		Items:      []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("foreign address must get ErrAddressNotFound, got %v", err)
	}
}

func TestGetCustomerOrderScopedToOwner(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000041", constants.OrderStatusPending, "", true)

	svc := newOrderService(db, "")
	if _, err := svc.GetCustomerOrder(order.ID, order.CustomerID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetCustomerOrder(order.ID, order.CustomerID+1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("foreign customer must get ErrOrderNotFound, got %v", err)
	}
}
