package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// setupServiceDB 打开内存数据库并接管全局 DB
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Address{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Shipment{},
		&models.ShipmentTrackingEvent{},
		&models.ShippingSetting{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// seedShippingSetting 写入启用状态的物流设置
func seedShippingSetting(t *testing.T, db *gorm.DB, autoUpdate bool) *models.ShippingSetting {
	t.Helper()
	setting := &models.ShippingSetting{
		APIKey:                "EP-test-key",
		Environment:           constants.CourierEnvSandbox,
		CourierStrategy:       constants.CourierStrategyCustomerChoice,
		AutoUpdateOrderStatus: autoUpdate,
		IsActive:              true,
		PickupName:            "Kedai Warehouse",
		PickupPhone:           "0123456789",
		PickupLine1:           "12 Jalan Ampang",
		PickupCity:            "Kuala Lumpur",
		PickupPostcode:        "50450",
		PickupState:           "kul",
		PickupCountry:         "MY",
	}
	if err := db.Create(setting).Error; err != nil {
		t.Fatalf("seed shipping setting failed: %v", err)
	}
	return setting
}

// seedOrderWithShipment 写入带运单的订单
func seedOrderWithShipment(t *testing.T, db *gorm.DB, orderNo, status, trackingNumber string, autoUpdate bool) (*models.Order, *models.Shipment) {
	t.Helper()
	order := &models.Order{
		OrderNo:          orderNo,
		CustomerID:       1,
		Status:           status,
		Currency:         constants.DefaultCurrency,
		TrackingNumber:   trackingNumber,
		CourierName:      "Poslaju",
		AutoStatusUpdate: autoUpdate,
		ShipName:         "Aisyah",
		ShipPhone:        "0198765432",
		ShipLine1:        "8 Jalan Tun Razak",
		ShipCity:         "Kuala Lumpur",
		ShipPostcode:     "50400",
		ShipState:        "kul",
		ShipCountry:      "MY",
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	shipment := &models.Shipment{
		OrderID:        order.ID,
		TrackingNumber: trackingNumber,
		CourierName:    "Poslaju",
		Status:         status,
	}
	if trackingNumber != "" {
		if err := db.Create(shipment).Error; err != nil {
			t.Fatalf("seed shipment failed: %v", err)
		}
		return order, shipment
	}
	return order, nil
}

// seedProduct 写入商品
func seedProduct(t *testing.T, db *gorm.DB, slug string, stock int, weightKG float64) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:  1,
		Slug:        slug,
		Name:        "Kopi O Gift Pack " + slug,
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		WeightKG:    decimal.NewFromFloat(weightKG),
		Stock:       stock,
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return product
}

// newSettingService 构建指向测试网关的物流设置服务
func newSettingService(db *gorm.DB, baseURL string) *ShippingSettingService {
	return NewShippingSettingService(
		repository.NewShippingSettingRepository(db),
		NewAuditService(repository.NewAuditLogRepository(db)),
		5,
		baseURL,
	)
}

// gatewayHandler 按动作分发的聚合平台假网关
type gatewayHandler map[string]func(w http.ResponseWriter, r *http.Request)

func newGatewayServer(t *testing.T, handlers gatewayHandler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("ac")
		handler, ok := handlers[action]
		if !ok {
			t.Errorf("unexpected gateway action %q", action)
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

// gatewayBaseURL 将假网关地址转为配置覆盖格式
func gatewayBaseURL(server *httptest.Server) string {
	return server.URL + "/?ac="
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().Add(d)
	return &ts
}
