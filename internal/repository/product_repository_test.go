package repository

import (
	"testing"

	"github.com/kedai-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate category/product failed: %v", err)
	}
	return NewProductRepository(db), db
}

func createTestProduct(t *testing.T, repo *GormProductRepository, slug string, stock int, isActive bool) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:  1,
		Slug:        slug,
		Name:        "Teh Tarik Gift Box",
		Description: "local tea gift set",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		WeightKG:    decimal.NewFromFloat(0.5),
		Stock:       stock,
		IsActive:    isActive,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestStockDeductRestoreLifecycle(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	product := createTestProduct(t, repo, "stock-lifecycle", 10, true)

	affected, err := repo.DeductStock(product.ID, 3)
	if err != nil {
		t.Fatalf("deduct stock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("deduct affected want 1 got %d", affected)
	}

	affected, err = repo.RestoreStock(product.ID, 1)
	if err != nil {
		t.Fatalf("restore stock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("restore affected want 1 got %d", affected)
	}

	var got models.Product
	if err := db.First(&got, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("stock want 8 got %d", got.Stock)
	}
}

func TestStockDeductRejectsOversell(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	product := createTestProduct(t, repo, "stock-oversell", 2, true)

	affected, err := repo.DeductStock(product.ID, 3)
	if err != nil {
		t.Fatalf("deduct over available failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("deduct over available affected want 0 got %d", affected)
	}

	affected, err = repo.DeductStock(product.ID, 2)
	if err != nil {
		t.Fatalf("deduct exact available failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("deduct exact available affected want 1 got %d", affected)
	}

	var got models.Product
	if err := db.First(&got, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("stock want 0 got %d", got.Stock)
	}
}

func TestListOnlyActiveFiltersInactive(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)
	active := createTestProduct(t, repo, "list-active", 1, true)
	inactive := createTestProduct(t, repo, "list-inactive", 1, false)

	products, total, err := repo.List(ProductListFilter{Page: 1, PageSize: 100, OnlyActive: true})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("total want 1 got %d", total)
	}
	got := make(map[string]bool, len(products))
	for _, item := range products {
		got[item.Slug] = true
	}
	if !got[active.Slug] {
		t.Fatalf("active slug should be listed, got %v", got)
	}
	if got[inactive.Slug] {
		t.Fatalf("inactive slug should be filtered, got %v", got)
	}
}

func TestListSearchMatchesNameAndSlug(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)
	createTestProduct(t, repo, "durian-crisp", 5, true)
	createTestProduct(t, repo, "kopi-pack", 5, true)

	products, total, err := repo.List(ProductListFilter{Page: 1, PageSize: 100, Search: "durian"})
	if err != nil {
		t.Fatalf("search products failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("search total want 1 got %d", total)
	}
	if len(products) != 1 || products[0].Slug != "durian-crisp" {
		t.Fatalf("search result want durian-crisp got %+v", products)
	}
}
