package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/courier/easyparcel"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

// ShippingSettingService 物流设置服务
// 聚合平台凭证、取件地址与全局自动更新开关的唯一入口。
type ShippingSettingService struct {
	settingRepo  repository.ShippingSettingRepository
	auditService *AuditService
	timeoutSec   int
	apiBaseURL   string // 网关覆盖，留空按环境取值
}

// NewShippingSettingService 创建物流设置服务
func NewShippingSettingService(settingRepo repository.ShippingSettingRepository, auditService *AuditService, timeoutSec int, apiBaseURL string) *ShippingSettingService {
	return &ShippingSettingService{
		settingRepo:  settingRepo,
		auditService: auditService,
		timeoutSec:   timeoutSec,
		apiBaseURL:   strings.TrimSpace(apiBaseURL),
	}
}

// buildConfig 构建聚合平台配置并套用网关覆盖
func (s *ShippingSettingService) buildConfig(apiKey, environment string) (*easyparcel.Config, error) {
	cfg, err := easyparcel.ParseConfig(apiKey, environment, s.timeoutSec)
	if err != nil {
		return nil, err
	}
	if s.apiBaseURL != "" {
		cfg.BaseURL = s.apiBaseURL
	}
	return cfg, nil
}

// GetActive 获取当前启用的物流设置，未配置时返回 ErrShippingNotConfigured。
func (s *ShippingSettingService) GetActive() (*models.ShippingSetting, error) {
	setting, err := s.settingRepo.GetActive()
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, ErrShippingNotConfigured
	}
	return setting, nil
}

// ResolveConfig 获取启用设置并构建聚合平台配置
// 取件地址缺失按未配置处理，调用方无需重复校验。
func (s *ShippingSettingService) ResolveConfig() (*models.ShippingSetting, *easyparcel.Config, error) {
	setting, err := s.GetActive()
	if err != nil {
		return nil, nil, err
	}
	if !pickupAddressComplete(setting) {
		return nil, nil, fmt.Errorf("%w: pickup address incomplete", ErrShippingNotConfigured)
	}
	cfg, err := s.buildConfig(setting.APIKey, setting.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrShippingNotConfigured, err)
	}
	return setting, cfg, nil
}

// PickupAddress 将设置中的取件地址转换为聚合平台地址参数
func PickupAddress(setting *models.ShippingSetting) easyparcel.Address {
	if setting == nil {
		return easyparcel.Address{}
	}
	return easyparcel.Address{
		Name:     setting.PickupName,
		Contact:  setting.PickupPhone,
		Line1:    setting.PickupLine1,
		Line2:    setting.PickupLine2,
		City:     setting.PickupCity,
		Postcode: setting.PickupPostcode,
		State:    setting.PickupState,
		Country:  setting.PickupCountry,
	}
}

func pickupAddressComplete(setting *models.ShippingSetting) bool {
	if setting == nil {
		return false
	}
	return strings.TrimSpace(setting.PickupName) != "" &&
		strings.TrimSpace(setting.PickupPhone) != "" &&
		strings.TrimSpace(setting.PickupLine1) != "" &&
		strings.TrimSpace(setting.PickupPostcode) != "" &&
		strings.TrimSpace(setting.PickupState) != ""
}

// SaveShippingSettingInput 保存物流设置输入
type SaveShippingSettingInput struct {
	ID                    uint
	APIKey                string
	Environment           string
	CourierStrategy       string
	AutoUpdateOrderStatus bool
	PickupName            string
	PickupPhone           string
	PickupLine1           string
	PickupLine2           string
	PickupCity            string
	PickupPostcode        string
	PickupState           string
	PickupCountry         string
	SkipConnectivityCheck bool
	AdminID               uint
	AdminName             string
	RequestID             string
}

// Save 校验并保存物流设置
// 保存前通过余额查询验证凭证连通性，保存即启用。
func (s *ShippingSettingService) Save(ctx context.Context, input SaveShippingSettingInput) (*models.ShippingSetting, error) {
	if err := s.validateSaveInput(&input); err != nil {
		return nil, err
	}

	cfg, err := s.buildConfig(input.APIKey, input.Environment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !input.SkipConnectivityCheck {
		balance, currency, err := easyparcel.CheckBalance(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: connectivity check failed: %v", ErrUpstream, err)
		}
		logger.Infow("shipping_setting_connectivity_verified",
			"environment", input.Environment,
			"credit_balance", balance,
			"currency", currency,
		)
	}

	var setting *models.ShippingSetting
	if input.ID != 0 {
		existing, err := s.settingRepo.GetByID(input.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrShippingNotConfigured
		}
		setting = existing
	} else {
		setting = &models.ShippingSetting{}
	}

	setting.APIKey = strings.TrimSpace(input.APIKey)
	setting.Environment = input.Environment
	setting.CourierStrategy = input.CourierStrategy
	setting.AutoUpdateOrderStatus = input.AutoUpdateOrderStatus
	setting.IsActive = true
	setting.PickupName = strings.TrimSpace(input.PickupName)
	setting.PickupPhone = strings.TrimSpace(input.PickupPhone)
	setting.PickupLine1 = strings.TrimSpace(input.PickupLine1)
	setting.PickupLine2 = strings.TrimSpace(input.PickupLine2)
	setting.PickupCity = strings.TrimSpace(input.PickupCity)
	setting.PickupPostcode = strings.TrimSpace(input.PickupPostcode)
	setting.PickupState = normalizeStateCode(input.PickupState)
	setting.PickupCountry = strings.ToUpper(strings.TrimSpace(input.PickupCountry))
	if setting.PickupCountry == "" {
		setting.PickupCountry = "MY"
	}

	if setting.ID == 0 {
		if err := s.settingRepo.Create(setting); err != nil {
			return nil, err
		}
	} else {
		if err := s.settingRepo.Update(setting); err != nil {
			return nil, err
		}
	}
	if err := s.settingRepo.Activate(setting.ID); err != nil {
		return nil, err
	}

	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    input.AdminID,
		ActorName:  input.AdminName,
		Action:     constants.AuditActionShippingSettingSave,
		Resource:   "shipping_setting",
		ResourceID: fmt.Sprintf("%d", setting.ID),
		RequestID:  input.RequestID,
		Detail: models.JSON{
			"environment":              setting.Environment,
			"courier_strategy":         setting.CourierStrategy,
			"auto_update_order_status": setting.AutoUpdateOrderStatus,
		},
	}); err != nil {
		logger.Warnw("shipping_setting_audit_failed", "setting_id", setting.ID, "error", err)
	}

	return setting, nil
}

// Delete 删除物流设置
func (s *ShippingSettingService) Delete(id uint, adminID uint, adminName, requestID string) error {
	if id == 0 {
		return ErrInvalidInput
	}
	setting, err := s.settingRepo.GetByID(id)
	if err != nil {
		return err
	}
	if setting == nil {
		return ErrShippingNotConfigured
	}
	if err := s.settingRepo.Delete(id); err != nil {
		return err
	}
	if err := s.auditService.Record(RecordAuditInput{
		ActorType:  constants.AuditActorAdmin,
		ActorID:    adminID,
		ActorName:  adminName,
		Action:     constants.AuditActionShippingSettingDelete,
		Resource:   "shipping_setting",
		ResourceID: fmt.Sprintf("%d", id),
		RequestID:  requestID,
	}); err != nil {
		logger.Warnw("shipping_setting_audit_failed", "setting_id", id, "error", err)
	}
	return nil
}

// List 物流设置列表（后台展示）
func (s *ShippingSettingService) List() ([]models.ShippingSetting, error) {
	return s.settingRepo.List()
}

func (s *ShippingSettingService) validateSaveInput(input *SaveShippingSettingInput) error {
	if strings.TrimSpace(input.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidInput)
	}
	input.Environment = strings.ToLower(strings.TrimSpace(input.Environment))
	switch input.Environment {
	case constants.CourierEnvSandbox, constants.CourierEnvProduction:
	default:
		return fmt.Errorf("%w: environment must be sandbox or production", ErrInvalidInput)
	}
	input.CourierStrategy = strings.ToLower(strings.TrimSpace(input.CourierStrategy))
	switch input.CourierStrategy {
	case constants.CourierStrategyCheapest, constants.CourierStrategyCustomerChoice, constants.CourierStrategyManual:
	case "":
		input.CourierStrategy = constants.CourierStrategyCustomerChoice
	default:
		return fmt.Errorf("%w: unknown courier strategy %s", ErrInvalidInput, input.CourierStrategy)
	}
	if strings.TrimSpace(input.PickupName) == "" || strings.TrimSpace(input.PickupPhone) == "" ||
		strings.TrimSpace(input.PickupLine1) == "" || strings.TrimSpace(input.PickupCity) == "" {
		return fmt.Errorf("%w: pickup address incomplete", ErrInvalidAddress)
	}
	if !isValidMalaysianPostcode(input.PickupPostcode) {
		return fmt.Errorf("%w: postcode must be 5 digits", ErrInvalidAddress)
	}
	if !isValidMalaysianState(input.PickupState) {
		return fmt.Errorf("%w: unknown state code %s", ErrInvalidAddress, input.PickupState)
	}
	return nil
}
