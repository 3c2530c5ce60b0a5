package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

func newOrderAdminService(db *gorm.DB) *OrderAdminService {
	return NewOrderAdminService(
		repository.NewOrderRepository(db),
		repository.NewShipmentRepository(db),
		repository.NewProductRepository(db),
		NewAuditService(repository.NewAuditLogRepository(db)),
	)
}

func TestConfirmOrder(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000051", constants.OrderStatusPending, "", true)

	svc := newOrderAdminService(db)
	if err := svc.ConfirmOrder(order.ID, 1, "ops", "req-1"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusConfirmed {
		t.Fatalf("want confirmed got %s", updated.Status)
	}

	// 已确认的订单不能再次确认
	if err := svc.ConfirmOrder(order.ID, 1, "ops", "req-2"); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("want ErrOrderStatusInvalid got %v", err)
	}
}

func TestBulkUpdateRejectsBadInput(t *testing.T) {
	db := setupServiceDB(t)
	svc := newOrderAdminService(db)

	if _, err := svc.BulkUpdate(BulkUpdateInput{Action: constants.BulkActionMarkProcessing}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty ids: want ErrInvalidInput got %v", err)
	}
	if _, err := svc.BulkUpdate(BulkUpdateInput{OrderIDs: []uint{1}, Action: "explode"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown action: want ErrInvalidInput got %v", err)
	}
	if _, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs:        []uint{1, 2},
		Action:          constants.BulkActionMarkShipped,
		TrackingNumbers: []string{"only-one"},
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("mismatched tracking numbers: want ErrInvalidInput got %v", err)
	}
}

func TestBulkMarkProcessing(t *testing.T) {
	db := setupServiceDB(t)
	confirmed, _ := seedOrderWithShipment(t, db, "KD20260801000052", constants.OrderStatusConfirmed, "", true)
	delivered, _ := seedOrderWithShipment(t, db, "KD20260801000053", constants.OrderStatusDelivered, "EP-AWB-D", true)

	svc := newOrderAdminService(db)
	result, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs: []uint{confirmed.ID, delivered.ID, 99999},
		Action:   constants.BulkActionMarkProcessing,
		AdminID:  1,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if result.Updated != 1 || result.Failed != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	var updated models.Order
	if err := db.First(&updated, confirmed.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusProcessing {
		t.Fatalf("want processing got %s", updated.Status)
	}
	var reloadedDelivered models.Order
	if err := db.First(&reloadedDelivered, delivered.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloadedDelivered.Status != constants.OrderStatusDelivered {
		t.Fatalf("delivered order must not regress, got %s", reloadedDelivered.Status)
	}
}

func TestBulkMarkShippedCreatesShipment(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000054", constants.OrderStatusProcessing, "", true)

	svc := newOrderAdminService(db)
	eta := futureTime(72 * time.Hour)
	result, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs:          []uint{order.ID},
		Action:            constants.BulkActionMarkShipped,
		TrackingNumbers:   []string{"MY998877"},
		ShippingCarrier:   "GDEX",
		EstimatedDelivery: eta,
		AdminID:           1,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if result.Updated != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusInTransit {
		t.Fatalf("want in_transit got %s", updated.Status)
	}
	if updated.TrackingNumber != "MY998877" || updated.CourierName != "GDEX" {
		t.Fatalf("order must carry tracking identity, got %q / %q", updated.TrackingNumber, updated.CourierName)
	}
	if updated.ShippedAt == nil {
		t.Fatalf("shipped_at must be set")
	}

	// 人工发货也要有运单记录
	var shipment models.Shipment
	if err := db.Where("order_id = ?", order.ID).First(&shipment).Error; err != nil {
		t.Fatalf("shipment must be created: %v", err)
	}
	if shipment.TrackingNumber != "MY998877" || shipment.Status != constants.OrderStatusInTransit {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
	if shipment.EstimatedDelivery == nil {
		t.Fatalf("estimated delivery must be stored")
	}
}

func TestBulkMarkShippedRequiresTrackingNumber(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000055", constants.OrderStatusProcessing, "", true)

	svc := newOrderAdminService(db)
	result, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs: []uint{order.ID},
		Action:   constants.BulkActionMarkShipped,
		AdminID:  1,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if result.Updated != 0 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], order.OrderNo) {
		t.Fatalf("error must name the order, got %v", result.Errors)
	}
}

func TestBulkCancelRestoresStock(t *testing.T) {
	db := setupServiceDB(t)
	product := seedProduct(t, db, "ondeh", 5, 0.3)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000056", constants.OrderStatusConfirmed, "", true)
	item := models.OrderItem{
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    2,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item failed: %v", err)
	}

	svc := newOrderAdminService(db)
	result, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs: []uint{order.ID},
		Action:   constants.BulkActionCancelOrders,
		AdminID:  1,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCancelled || updated.CancelledAt == nil {
		t.Fatalf("order must be cancelled with timestamp, got %+v", updated)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 7 {
		t.Fatalf("stock want 7 got %d", reloaded.Stock)
	}
}

func TestBulkCancelRejectsTerminalOrders(t *testing.T) {
	db := setupServiceDB(t)
	delivered, _ := seedOrderWithShipment(t, db, "KD20260801000057", constants.OrderStatusDelivered, "EP-AWB-D", true)
	cancelled, _ := seedOrderWithShipment(t, db, "KD20260801000058", constants.OrderStatusCancelled, "", true)

	svc := newOrderAdminService(db)
	result, err := svc.BulkUpdate(BulkUpdateInput{
		OrderIDs: []uint{delivered.ID, cancelled.ID},
		Action:   constants.BulkActionCancelOrders,
		AdminID:  1,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if result.Updated != 0 || result.Failed != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAppendTrackingEvent(t *testing.T) {
	db := setupServiceDB(t)
	order, shipment := seedOrderWithShipment(t, db, "KD20260801000059", constants.OrderStatusInTransit, "EP-AWB-1", true)

	svc := newOrderAdminService(db)
	event, err := svc.AppendTrackingEvent(AppendTrackingEventInput{
		OrderID:   order.ID,
		EventName: "Customer requested redelivery",
		Location:  "Petaling Jaya",
		AdminID:   1,
	})
	if err != nil {
		t.Fatalf("append event failed: %v", err)
	}
	if event.Source != constants.TrackingEventSourceManual {
		t.Fatalf("manual event source want manual got %s", event.Source)
	}
	if event.ShipmentID != shipment.ID {
		t.Fatalf("event bound to wrong shipment")
	}

	if _, err := svc.AppendTrackingEvent(AppendTrackingEventInput{OrderID: order.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name: want ErrInvalidInput got %v", err)
	}
}

func TestAppendTrackingEventRequiresShipment(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000060", constants.OrderStatusConfirmed, "", true)

	svc := newOrderAdminService(db)
	_, err := svc.AppendTrackingEvent(AppendTrackingEventInput{
		OrderID:   order.ID,
		EventName: "Anything",
	})
	if !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("want ErrShipmentNotFound got %v", err)
	}
}

func TestSetAutoStatusUpdate(t *testing.T) {
	db := setupServiceDB(t)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000061", constants.OrderStatusInTransit, "EP-AWB-1", true)

	svc := newOrderAdminService(db)
	if err := svc.SetAutoStatusUpdate(order.ID, false, 1, "ops", "req-1"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.AutoStatusUpdate {
		t.Fatalf("auto update must be off")
	}
	if updated.Status != constants.OrderStatusInTransit {
		t.Fatalf("toggle must not change status, got %s", updated.Status)
	}
}
