package service

import (
	"strings"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

// SettingService 站点设置服务（通用 key/JSON 存储）
type SettingService struct {
	repo repository.SettingRepository
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetConfig 获取站点配置（合并默认值）
func (s *SettingService) GetConfig(defaults map[string]interface{}) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	for k, v := range defaults {
		data[k] = v
	}

	setting, err := s.repo.GetByKey(constants.SettingKeySiteConfig)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return data, nil
	}

	for k, v := range setting.ValueJSON {
		data[k] = v
	}
	return data, nil
}

// GetByKey 获取设置
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update 设置值
func (s *SettingService) Update(key string, value map[string]interface{}) (models.JSON, error) {
	key = strings.TrimSpace(key)
	switch key {
	case constants.SettingKeySiteConfig, constants.SettingKeyChatRelay:
	default:
		return nil, ErrInvalidInput
	}

	setting, err := s.repo.Upsert(key, models.JSON(value))
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}
