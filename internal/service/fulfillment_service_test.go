package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newFulfillmentService(db *gorm.DB, baseURL string) *FulfillmentService {
	settingService := newSettingService(db, baseURL)
	return NewFulfillmentService(
		repository.NewOrderRepository(db),
		repository.NewShipmentRepository(db),
		settingService,
		NewRateService(settingService),
		NewAuditService(repository.NewAuditLogRepository(db)),
		nil,
		NewWebhookRelayService(config.ChatRelayConfig{}, nil),
	)
}

// seedFulfillableOrder 写入可出货订单（confirmed、带订单项、无运单）
func seedFulfillableOrder(t *testing.T, db *gorm.DB, orderNo, selectedServiceID string) *models.Order {
	t.Helper()
	order, _ := seedOrderWithShipment(t, db, orderNo, constants.OrderStatusConfirmed, "", true)
	updates := map[string]interface{}{
		"subtotal_amount":             100,
		"selected_courier_service_id": selectedServiceID,
	}
	if err := db.Model(order).Updates(updates).Error; err != nil {
		t.Fatalf("update order failed: %v", err)
	}
	item := models.OrderItem{
		OrderID:     order.ID,
		ProductID:   1,
		ProductName: "Kopi O Gift Pack",
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Quantity:    2,
		WeightKG:    decimal.NewFromFloat(0.5),
		TotalPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed order item failed: %v", err)
	}
	return order
}

const rateBody = `{
	"api_status": "Success",
	"error_code": "0",
	"result": [{
		"status": "Success",
		"rates": [
			{"service_id": "EP-CS-FAST", "courier_name": "Poslaju", "service_type": "parcel", "price": "12.50", "delivery": "1-2 days"},
			{"service_id": "EP-CS-ECON", "courier_name": "J&T Express", "service_type": "parcel", "price": "8.90", "delivery": "2-4 days"}
		]
	}]
}`

const submitBody = `{
	"api_status": "Success",
	"error_code": "0",
	"result": [{"status": "Success", "order_number": "EI-5F2K1", "parcel_number": "EP-P-001", "price": "8.90"}]
}`

const payBody = `{
	"api_status": "Success",
	"error_code": "0",
	"result": [{
		"orderno": "EI-5F2K1",
		"status": "Success",
		"messagenow": "Fully Paid",
		"parcel": [{
			"parcelno": "EP-P-001",
			"awb": "238770015234",
			"awb_id_link": "https://demo.connect.easyparcel.my/label/238770015234.pdf",
			"tracking_url": "https://easyparcel.com/my/track/238770015234"
		}]
	}]
}`

func TestFulfillCustomerChoiceHappyPath(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order := seedFulfillableOrder(t, db, "KD20260801000021", "EP-CS-FAST")

	var submittedServiceID, submittedReference string
	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
		"EPSubmitOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			submittedServiceID = r.FormValue("bulk[0][service_id]")
			submittedReference = r.FormValue("bulk[0][reference]")
			writeJSON(w, submitBody)
		},
		"EPPayOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("bulk[0][order_no]") != "EI-5F2K1" {
				t.Errorf("unexpected aggregator order no %q", r.FormValue("bulk[0][order_no]"))
			}
			writeJSON(w, payBody)
		},
	})

	svc := newFulfillmentService(db, gatewayBaseURL(server))
	out, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID, AdminID: 1, AdminName: "ops"})
	if err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if out.TrackingNumber != "238770015234" || out.CourierName != "Poslaju" {
		t.Fatalf("unexpected output %+v", out)
	}
	if submittedServiceID != "EP-CS-FAST" {
		t.Fatalf("customer chosen service must win, submitted %q", submittedServiceID)
	}
	if submittedReference != order.OrderNo {
		t.Fatalf("submit must carry order no as reference, got %q", submittedReference)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusReadyToShip {
		t.Fatalf("order status want ready_to_ship got %s", updated.Status)
	}
	if updated.TrackingNumber != "238770015234" || updated.CourierName != "Poslaju" {
		t.Fatalf("order must carry shipment identity, got %q / %q", updated.TrackingNumber, updated.CourierName)
	}

	var shipment models.Shipment
	if err := db.Where("order_id = ?", order.ID).First(&shipment).Error; err != nil {
		t.Fatalf("shipment must be persisted: %v", err)
	}
	if shipment.AggregatorOrderNo != "EI-5F2K1" || shipment.AWB != "238770015234" {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
	if shipment.Status != constants.OrderStatusReadyToShip {
		t.Fatalf("shipment status want ready_to_ship got %s", shipment.Status)
	}
	if got := shipment.ShippingCost.StringFixed(2); got != "8.90" {
		t.Fatalf("shipping cost want 8.90 got %s", got)
	}

	var auditCount int64
	if err := db.Model(&models.AuditLog{}).Where("action = ?", constants.AuditActionOrderFulfill).Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit failed: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("want 1 fulfill audit entry got %d", auditCount)
	}
}

func TestFulfillCheapestStrategyPicksLowestPrice(t *testing.T) {
	db := setupServiceDB(t)
	setting := seedShippingSetting(t, db, true)
	if err := db.Model(setting).Update("courier_strategy", constants.CourierStrategyCheapest).Error; err != nil {
		t.Fatalf("update strategy failed: %v", err)
	}
	order := seedFulfillableOrder(t, db, "KD20260801000022", "")

	var submittedServiceID string
	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
		"EPSubmitOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			submittedServiceID = r.FormValue("bulk[0][service_id]")
			writeJSON(w, submitBody)
		},
		"EPPayOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, payBody)
		},
	})

	svc := newFulfillmentService(db, gatewayBaseURL(server))
	out, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if submittedServiceID != "EP-CS-ECON" {
		t.Fatalf("cheapest strategy must pick lowest price, submitted %q", submittedServiceID)
	}
	if out.CourierName != "J&T Express" {
		t.Fatalf("unexpected courier %q", out.CourierName)
	}
}

func TestFulfillRejectsDuplicateShipment(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000023", constants.OrderStatusReadyToShip, "EP-AWB-OLD", true)

	svc := newFulfillmentService(db, "")
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if !errors.Is(err, ErrShipmentExists) {
		t.Fatalf("want ErrShipmentExists got %v", err)
	}
}

func TestFulfillRejectsUnfulfillableStatus(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)

	svc := newFulfillmentService(db, "")
	for _, status := range []string{
		constants.OrderStatusPending,
		constants.OrderStatusInTransit,
		constants.OrderStatusDelivered,
		constants.OrderStatusCancelled,
	} {
		order := seedFulfillableOrder(t, db, "KD2026080100003"+status[:1], "")
		if err := db.Model(order).Update("status", status).Error; err != nil {
			t.Fatalf("update status failed: %v", err)
		}
		_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
		if !errors.Is(err, ErrOrderStatusInvalid) {
			t.Fatalf("status %s: want ErrOrderStatusInvalid got %v", status, err)
		}
	}
}

func TestFulfillRejectsOrderWithoutItems(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000024", constants.OrderStatusConfirmed, "", true)

	svc := newFulfillmentService(db, "")
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if !errors.Is(err, ErrOrderItemsInvalid) {
		t.Fatalf("want ErrOrderItemsInvalid got %v", err)
	}
}

func TestFulfillRejectsZeroWeight(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order := seedFulfillableOrder(t, db, "KD20260801000025", "")
	if err := db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Update("weight_kg", 0).Error; err != nil {
		t.Fatalf("zero weight failed: %v", err)
	}

	svc := newFulfillmentService(db, "")
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("want ErrInvalidWeight got %v", err)
	}
}

func TestFulfillManualStrategyRequiresServiceID(t *testing.T) {
	db := setupServiceDB(t)
	setting := seedShippingSetting(t, db, true)
	if err := db.Model(setting).Update("courier_strategy", constants.CourierStrategyManual).Error; err != nil {
		t.Fatalf("update strategy failed: %v", err)
	}
	order := seedFulfillableOrder(t, db, "KD20260801000026", "EP-CS-FAST")

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
	})

	svc := newFulfillmentService(db, gatewayBaseURL(server))
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput got %v", err)
	}
}

func TestFulfillRejectsUnavailableService(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order := seedFulfillableOrder(t, db, "KD20260801000027", "")

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
	})

	svc := newFulfillmentService(db, gatewayBaseURL(server))
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID, ServiceID: "EP-CS-GONE"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput got %v", err)
	}
}

func TestFulfillInsufficientBalanceLeavesOrderUntouched(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order := seedFulfillableOrder(t, db, "KD20260801000028", "EP-CS-FAST")

	server := newGatewayServer(t, gatewayHandler{
		"EPRateCheckingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, rateBody)
		},
		"EPSubmitOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, submitBody)
		},
		"EPPayOrderBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{
				"api_status": "Success",
				"error_code": "0",
				"result": [{
					"orderno": "EI-5F2K1",
					"status": "Success",
					"messagenow": "Insufficient credit balance, please top up",
					"parcel": [{"parcelno": "EP-P-001"}]
				}]
			}`)
		},
	})

	svc := newFulfillmentService(db, gatewayBaseURL(server))
	_, err := svc.Fulfill(context.Background(), FulfillInput{OrderID: order.ID})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance got %v", err)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusConfirmed {
		t.Fatalf("failed payment must not advance order, got %s", updated.Status)
	}
	var shipmentCount int64
	if err := db.Model(&models.Shipment{}).Where("order_id = ?", order.ID).Count(&shipmentCount).Error; err != nil {
		t.Fatalf("count shipments failed: %v", err)
	}
	if shipmentCount != 0 {
		t.Fatalf("failed payment must not persist shipment")
	}
}
