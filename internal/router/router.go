package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kedai-next/internal/authz"
	"github.com/kedai-next/internal/cache"
	"github.com/kedai-next/internal/config"
	adminhandlers "github.com/kedai-next/internal/http/handlers/admin"
	publichandlers "github.com/kedai-next/internal/http/handlers/public"
	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "kd"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts, retry in %d seconds",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts, retry in %d seconds",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 静态文件服务（上传的图片）- 必须放在最前面
	r.Static("/uploads", "./uploads")

	// 定时任务入口（外部调度器按固定频率调用）
	cron := r.Group("/api/cron")
	cron.Use(CronTokenMiddleware(cfg.Shipping.CronToken))
	{
		cron.GET("/update-tracking", publicHandler.UpdateTracking)
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProductBySlug)
			public.GET("/categories", publicHandler.GetCategories)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 客户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 客户接口（需鉴权）
		customer := apiV1.Group("")
		customer.Use(CustomerJWTAuthMiddleware(cfg.CustomerJWT.SecretKey, c.CustomerRepo))
		{
			customer.GET("/me", publicHandler.GetProfile)
			customer.PUT("/me/profile", publicHandler.UpdateProfile)
			customer.PUT("/me/password", publicHandler.ChangePassword)
			customer.GET("/addresses", publicHandler.ListAddresses)
			customer.POST("/addresses", publicHandler.CreateAddress)
			customer.PUT("/addresses/:id", publicHandler.UpdateAddress)
			customer.DELETE("/addresses/:id", publicHandler.DeleteAddress)
			customer.POST("/addresses/:id/default", publicHandler.SetDefaultAddress)
			customer.POST("/orders", publicHandler.CreateOrder)
			customer.GET("/orders", publicHandler.GetMyOrders)
			customer.GET("/orders/:id", publicHandler.GetMyOrder)
			customer.POST("/shipping/rates", publicHandler.QuoteShippingRates)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 订单管理
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.POST("/orders/:id/confirm", adminHandler.ConfirmOrder)
				authorized.PUT("/orders/bulk-fulfillment", adminHandler.BulkUpdateOrders)
				authorized.GET("/orders/:id/shipping-options", adminHandler.GetOrderShippingOptions)
				authorized.POST("/orders/:id/fulfill", adminHandler.FulfillOrder)
				authorized.POST("/orders/:id/tracking-events", adminHandler.AppendTrackingEvent)
				authorized.PUT("/orders/:id/auto-status-update", adminHandler.SetAutoStatusUpdate)
				authorized.POST("/orders/labels/download", adminHandler.DownloadLabels)

				// 物流配置与同步
				authorized.GET("/shipping/settings", adminHandler.GetShippingSettings)
				authorized.POST("/shipping/settings", adminHandler.SaveShippingSetting)
				authorized.DELETE("/shipping/settings/:id", adminHandler.DeleteShippingSetting)
				authorized.POST("/shipping/tracking-sync/run", adminHandler.RunTrackingSync)

				// 商品管理
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 分类管理
				authorized.GET("/categories", adminHandler.GetAdminCategories)
				authorized.POST("/categories", adminHandler.CreateCategory)
				authorized.PUT("/categories/:id", adminHandler.UpdateCategory)
				authorized.DELETE("/categories/:id", adminHandler.DeleteCategory)

				// 设置管理
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.PUT("/settings", adminHandler.UpdateSettings)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 审计与报表
				authorized.GET("/audit-logs", adminHandler.GetAuditLogs)
				authorized.GET("/reports/sales-summary", adminHandler.GetSalesSummary)
				authorized.GET("/reports/orders/export", adminHandler.ExportOrdersCSV)

				// 权限目录（前端按目录渲染角色授权界面）
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
