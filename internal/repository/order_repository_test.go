package repository

import (
	"testing"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.Shipment{},
		&models.ShipmentTrackingEvent{},
	); err != nil {
		t.Fatalf("migrate order models failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func seedTestOrder(t *testing.T, db *gorm.DB, orderNo, status, trackingNumber string, autoUpdate bool, updatedAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:          orderNo,
		CustomerID:       1,
		Status:           status,
		Currency:         constants.DefaultCurrency,
		TrackingNumber:   trackingNumber,
		AutoStatusUpdate: autoUpdate,
		ShipName:         "Aisyah",
		ShipPhone:        "0123456789",
		ShipLine1:        "12 Jalan Ampang",
		ShipCity:         "Kuala Lumpur",
		ShipPostcode:     "50450",
		ShipState:        "kul",
		ShipCountry:      "MY",
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order %s failed: %v", orderNo, err)
	}
	if err := db.Model(order).UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("set updated_at for %s failed: %v", orderNo, err)
	}
	return order
}

func TestListTrackableSelectsOnlyInFlightOrders(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	now := time.Now()

	stale := seedTestOrder(t, db, "KD-001", constants.OrderStatusInTransit, "EP-1001", true, now.Add(-2*time.Hour))
	fresh := seedTestOrder(t, db, "KD-002", constants.OrderStatusOutForDelivery, "EP-1002", true, now.Add(-time.Hour))
	seedTestOrder(t, db, "KD-003", constants.OrderStatusDelivered, "EP-1003", true, now.Add(-4*time.Hour))
	seedTestOrder(t, db, "KD-004", constants.OrderStatusCancelled, "EP-1004", true, now.Add(-4*time.Hour))
	seedTestOrder(t, db, "KD-005", constants.OrderStatusPending, "EP-1005", true, now.Add(-4*time.Hour))
	seedTestOrder(t, db, "KD-006", constants.OrderStatusInTransit, "", true, now.Add(-4*time.Hour))
	seedTestOrder(t, db, "KD-007", constants.OrderStatusInTransit, "EP-1007", false, now.Add(-4*time.Hour))

	orders, err := repo.ListTrackable(10)
	if err != nil {
		t.Fatalf("list trackable failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("trackable len want 2 got %d", len(orders))
	}
	if orders[0].ID != stale.ID {
		t.Fatalf("oldest-updated order should come first, want %d got %d", stale.ID, orders[0].ID)
	}
	if orders[1].ID != fresh.ID {
		t.Fatalf("second order want %d got %d", fresh.ID, orders[1].ID)
	}
}

func TestListTrackableHonorsLimit(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	now := time.Now()
	for i, orderNo := range []string{"KD-101", "KD-102", "KD-103"} {
		seedTestOrder(t, db, orderNo, constants.OrderStatusInTransit, "EP-"+orderNo, true, now.Add(time.Duration(-i)*time.Hour))
	}

	orders, err := repo.ListTrackable(2)
	if err != nil {
		t.Fatalf("list trackable failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("trackable len want 2 got %d", len(orders))
	}
}

func TestGetByIDsPreservesInputOrder(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	now := time.Now()

	first := seedTestOrder(t, db, "KD-201", constants.OrderStatusProcessing, "", true, now)
	second := seedTestOrder(t, db, "KD-202", constants.OrderStatusProcessing, "", true, now)
	third := seedTestOrder(t, db, "KD-203", constants.OrderStatusProcessing, "", true, now)

	orders, err := repo.GetByIDs([]uint{third.ID, first.ID, 999, second.ID})
	if err != nil {
		t.Fatalf("get by ids failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("orders len want 3 got %d", len(orders))
	}
	if orders[0].ID != third.ID || orders[1].ID != first.ID || orders[2].ID != second.ID {
		t.Fatalf("orders should preserve input order, got %d %d %d", orders[0].ID, orders[1].ID, orders[2].ID)
	}
}

func TestResolveReceiverEmailByOrderID(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)

	customer := &models.Customer{
		Email:        "aisyah@example.my",
		PasswordHash: "x",
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	order := seedTestOrder(t, db, "KD-301", constants.OrderStatusConfirmed, "", true, time.Now())
	if err := db.Model(order).UpdateColumn("customer_id", customer.ID).Error; err != nil {
		t.Fatalf("bind customer failed: %v", err)
	}

	email, err := repo.ResolveReceiverEmailByOrderID(order.ID)
	if err != nil {
		t.Fatalf("resolve email failed: %v", err)
	}
	if email != "aisyah@example.my" {
		t.Fatalf("email want aisyah@example.my got %s", email)
	}

	email, err = repo.ResolveReceiverEmailByOrderID(999)
	if err != nil {
		t.Fatalf("resolve missing order failed: %v", err)
	}
	if email != "" {
		t.Fatalf("missing order email should be empty, got %s", email)
	}
}
