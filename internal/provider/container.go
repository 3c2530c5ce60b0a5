package provider

import (
	"github.com/kedai-next/internal/authz"
	"github.com/kedai-next/internal/cache"
	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/queue"
	"github.com/kedai-next/internal/repository"
	"github.com/kedai-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo           repository.AdminRepository
	CustomerRepo        repository.CustomerRepository
	AddressRepo         repository.AddressRepository
	OrderRepo           repository.OrderRepository
	ShipmentRepo        repository.ShipmentRepository
	ProductRepo         repository.ProductRepository
	CategoryRepo        repository.CategoryRepository
	SettingRepo         repository.SettingRepository
	ShippingSettingRepo repository.ShippingSettingRepository
	AuditLogRepo        repository.AuditLogRepository

	// Services
	AuthzService           *authz.Service
	AuthService            *service.AuthService
	CustomerAuthService    *service.CustomerAuthService
	EmailService           *service.EmailService
	CaptchaService         *service.CaptchaService
	AuditService           *service.AuditService
	SettingService         *service.SettingService
	ShippingSettingService *service.ShippingSettingService
	RateService            *service.RateService
	ProductService         *service.ProductService
	CategoryService        *service.CategoryService
	AddressService         *service.AddressService
	OrderService           *service.OrderService
	OrderAdminService      *service.OrderAdminService
	FulfillmentService     *service.FulfillmentService
	TrackingSyncService    *service.TrackingSyncService
	LabelService           *service.LabelService
	ReportService          *service.ReportService
	WebhookRelayService    *service.WebhookRelayService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.AddressRepo = repository.NewAddressRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ShipmentRepo = repository.NewShipmentRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.ShippingSettingRepo = repository.NewShippingSettingRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuditService = service.NewAuditService(c.AuditLogRepo)
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CustomerAuthService = service.NewCustomerAuthService(c.Config, c.CustomerRepo)

	c.ShippingSettingService = service.NewShippingSettingService(
		c.ShippingSettingRepo,
		c.AuditService,
		c.Config.Shipping.HTTPTimeoutSeconds,
		c.Config.Shipping.APIBaseURL,
	)
	c.RateService = service.NewRateService(c.ShippingSettingService)
	c.WebhookRelayService = service.NewWebhookRelayService(c.Config.ChatRelay, c.QueueClient)

	c.ProductService = service.NewProductService(c.ProductRepo, c.AuditService)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo, c.AuditService)
	c.AddressService = service.NewAddressService(c.AddressRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.AddressRepo, c.RateService, c.QueueClient)
	c.OrderAdminService = service.NewOrderAdminService(c.OrderRepo, c.ShipmentRepo, c.ProductRepo, c.AuditService)
	c.FulfillmentService = service.NewFulfillmentService(
		c.OrderRepo,
		c.ShipmentRepo,
		c.ShippingSettingService,
		c.RateService,
		c.AuditService,
		c.QueueClient,
		c.WebhookRelayService,
	)
	c.TrackingSyncService = service.NewTrackingSyncService(
		c.OrderRepo,
		c.ShipmentRepo,
		c.ShippingSettingService,
		c.AuditService,
		c.Config.Shipping,
	)
	c.LabelService = service.NewLabelService(c.OrderRepo, c.ShippingSettingService, c.Config.Shipping)
	c.ReportService = service.NewReportService(c.OrderRepo)
}
