package main

import (
	"fmt"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{Slug: "electronics", Name: "Electronics", SortOrder: 300},
		{Slug: "home-living", Name: "Home & Living", SortOrder: 200},
		{Slug: "accessories", Name: "Accessories", SortOrder: 100},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	// 获取分类ID
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"electronics", "home-living", "accessories"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}
	electronicsID := categoryIDs["electronics"]
	homeLivingID := categoryIDs["home-living"]
	accessoriesID := categoryIDs["accessories"]

	// 添加商品（价格 MYR，重量为运费计算依据）
	products := []models.Product{
		{
			CategoryID:  electronicsID,
			Slug:        "wireless-earbuds",
			Name:        "Wireless Bluetooth Earbuds",
			Description: "Bluetooth 5.3 earbuds with active noise cancellation and 24-hour battery life.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(129.00)),
			WeightKG:    decimal.NewFromFloat(0.15),
			Stock:       80,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=800",
			}),
			Tags:      models.StringArray([]string{"Audio", "Wireless"}),
			IsActive:  true,
			SortOrder: 300,
		},
		{
			CategoryID:  electronicsID,
			Slug:        "smart-watch",
			Name:        "Smart Watch",
			Description: "Health monitoring, fitness tracking and message notifications with waterproof design.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(299.00)),
			WeightKG:    decimal.NewFromFloat(0.25),
			Stock:       45,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1579586337278-3befd40fd17a?w=800",
			}),
			Tags:      models.StringArray([]string{"Wearable", "Health"}),
			IsActive:  true,
			SortOrder: 280,
		},
		{
			CategoryID:  accessoriesID,
			Slug:        "power-bank-20000",
			Name:        "20000mAh Power Bank",
			Description: "High capacity power bank with fast charging and dual USB-C ports.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(89.00)),
			WeightKG:    decimal.NewFromFloat(0.45),
			Stock:       120,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=800",
			}),
			Tags:      models.StringArray([]string{"Charger", "Portable"}),
			IsActive:  true,
			SortOrder: 260,
		},
		{
			CategoryID:  homeLivingID,
			Slug:        "travel-backpack",
			Name:        "Multi-function Travel Backpack",
			Description: "Large capacity waterproof backpack with anti-theft zipper and USB charging port.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(159.00)),
			WeightKG:    decimal.NewFromFloat(0.90),
			Stock:       60,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800",
			}),
			Tags:      models.StringArray([]string{"Bag", "Travel"}),
			IsActive:  true,
			SortOrder: 240,
		},
		{
			CategoryID:  homeLivingID,
			Slug:        "ceramic-mug-set",
			Name:        "Ceramic Mug Set (4 pcs)",
			Description: "Hand-glazed ceramic mugs, dishwasher and microwave safe.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(69.00)),
			WeightKG:    decimal.NewFromFloat(1.60),
			Stock:       35,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1514228742587-6b1558fcca3d?w=800",
			}),
			Tags:      models.StringArray([]string{"Kitchen", "Gift"}),
			IsActive:  true,
			SortOrder: 220,
		},
		{
			CategoryID:  accessoriesID,
			Slug:        "demo-out-of-stock",
			Name:        "Demo Product (Sold Out)",
			Description: "Used to demo the out-of-stock badge and disabled checkout.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(49.00)),
			WeightKG:    decimal.NewFromFloat(0.20),
			Stock:       0,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1512499617640-c74ae3a79d37?w=800",
			}),
			Tags:      models.StringArray([]string{"Demo"}),
			IsActive:  true,
			SortOrder: 100,
		},
	}

	for _, prod := range products {
		if prod.CategoryID == 0 {
			stdLog.Printf("Skip product %s: category_id missing", prod.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Slug)
			}
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.PriceAmount = prod.PriceAmount
			existing.WeightKG = prod.WeightKG
			existing.Stock = prod.Stock
			existing.CategoryID = prod.CategoryID
			existing.Images = prod.Images
			existing.Tags = prod.Tags
			existing.IsActive = prod.IsActive
			existing.SortOrder = prod.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
		}
	}

	// 更新网站配置
	configData := map[string]interface{}{
		"site_name": "Kedai Next",
		"currency":  "MYR",
		"contact": map[string]string{
			"whatsapp": "https://wa.me/60123456789",
			"email":    "support@kedai-next.example",
		},
	}

	var setting models.Setting
	if err := models.DB.Where("key = ?", "site_config").First(&setting).Error; err != nil {
		// 不存在则创建
		setting = models.Setting{
			Key:       "site_config",
			ValueJSON: models.JSON(configData),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create setting: %v", err)
		} else {
			stdLog.Println("Created site config")
		}
	} else {
		// 更新
		setting.ValueJSON = models.JSON(configData)
		if err := models.DB.Save(&setting).Error; err != nil {
			stdLog.Printf("Failed to update setting: %v", err)
		} else {
			stdLog.Println("Updated site config")
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Categories")
	fmt.Println("- 6 Products (1 sold out demo)")
	fmt.Println("- Site configuration")
}
