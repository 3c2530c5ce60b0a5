//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.ShipmentTrackingEvent{},
		&models.Shipment{},
		&models.OrderItem{},
		&models.Order{},
		&models.Product{},
		&models.Category{},
		&models.Customer{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Shipment{},
		&models.ShipmentTrackingEvent{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresProductSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	category := &models.Category{
		Slug: "pg-category",
		Name: "Snacks",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	productRepo := NewProductRepository(db)
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "pg-durian-crisp",
		Name:        "Durian Crisp",
		Description: "freeze dried durian snack",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(29)),
		WeightKG:    decimal.NewFromFloat(0.3),
		Stock:       10,
		IsActive:    true,
	}
	if err := productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	rows, total, err := productRepo.List(ProductListFilter{
		Page:   1,
		Search: "durian",
	})
	if err != nil {
		t.Fatalf("product list search lowercase failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("product list search lowercase want 1 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = productRepo.List(ProductListFilter{
		Page:   1,
		Search: "DURIAN",
	})
	if err != nil {
		t.Fatalf("product list search uppercase failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("product list search uppercase want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresListTrackableSelection(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewOrderRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	seedOrder := func(orderNo, status, trackingNumber string, autoUpdate bool, updatedAt time.Time) *models.Order {
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

	stale := seedOrder("PG-TRACK-001", constants.OrderStatusInTransit, "EP-1001", true, now.Add(-2*time.Hour))
	fresh := seedOrder("PG-TRACK-002", constants.OrderStatusReadyToShip, "EP-1002", true, now.Add(-time.Hour))
	seedOrder("PG-TRACK-003", constants.OrderStatusDelivered, "EP-1003", true, now.Add(-3*time.Hour))
	seedOrder("PG-TRACK-004", constants.OrderStatusInTransit, "", true, now.Add(-3*time.Hour))
	seedOrder("PG-TRACK-005", constants.OrderStatusInTransit, "EP-1005", false, now.Add(-3*time.Hour))

	orders, err := repo.ListTrackable(10)
	if err != nil {
		t.Fatalf("list trackable failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("trackable len want 2 got %d", len(orders))
	}
	if orders[0].ID != stale.ID || orders[1].ID != fresh.ID {
		t.Fatalf("trackable order should be oldest-updated first, got %d then %d", orders[0].ID, orders[1].ID)
	}
}
