package easyparcel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kedai-next/internal/constants"
)

var (
	ErrNotConfigured       = errors.New("easyparcel not configured")
	ErrInvalidAddress      = errors.New("easyparcel address invalid")
	ErrRequestFailed       = errors.New("easyparcel request failed")
	ErrResponseInvalid     = errors.New("easyparcel response invalid")
	ErrUpstream            = errors.New("easyparcel upstream error")
	ErrPaymentRejected     = errors.New("easyparcel payment rejected")
	ErrPaymentFailed       = errors.New("easyparcel payment failed")
	ErrInsufficientBalance = errors.New("easyparcel insufficient balance")
)

// 聚合平台操作名常量
const (
	actionRateChecking = "EPRateCheckingBulk"
	actionSubmitOrder  = "EPSubmitOrderBulk"
	actionPayOrder     = "EPPayOrderBulk"
	actionTrackParcel  = "EPTrackingBulk"
	actionCheckBalance = "EPCheckCreditBalance"
)

const (
	sandboxBaseURL    = "https://demo.connect.easyparcel.my/?ac="
	productionBaseURL = "https://connect.easyparcel.my/?ac="

	defaultTimeout = 15 * time.Second
)

// Config EasyParcel 配置
type Config struct {
	APIKey      string `json:"api_key"`     // API Key
	Environment string `json:"environment"` // 环境（sandbox/production）
	BaseURL     string `json:"base_url"`    // 网关地址覆盖（测试用，留空按环境取值）
	TimeoutSec  int    `json:"timeout_sec"` // 单次调用超时秒数，默认 15
}

// ParseConfig 从物流设置构建配置
func ParseConfig(apiKey, environment string, timeoutSec int) (*Config, error) {
	cfg := &Config{
		APIKey:      apiKey,
		Environment: environment,
		TimeoutSec:  timeoutSec,
	}
	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrNotConfigured)
	}
	switch cfg.Environment {
	case constants.CourierEnvSandbox, constants.CourierEnvProduction:
	default:
		return fmt.Errorf("%w: environment must be sandbox or production", ErrNotConfigured)
	}
	return nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.Environment == "" {
		c.Environment = constants.CourierEnvSandbox
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = int(defaultTimeout / time.Second)
	}
}

func (c *Config) endpoint(action string) string {
	base := c.BaseURL
	if base == "" {
		if c.Environment == constants.CourierEnvProduction {
			base = productionBaseURL
		} else {
			base = sandboxBaseURL
		}
	}
	return base + action
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// postForm 向聚合平台提交表单请求并返回响应体
func postForm(ctx context.Context, cfg *Config, action string, params url.Values) ([]byte, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api", cfg.APIKey)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.endpoint(action), strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: cfg.timeout()}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// DownloadLabel 下载面单文件（PDF 字节流）
func DownloadLabel(ctx context.Context, cfg *Config, labelURL string) ([]byte, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	labelURL = strings.TrimSpace(labelURL)
	if labelURL == "" {
		return nil, fmt.Errorf("%w: empty label url", ErrRequestFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, labelURL, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.timeout()}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty label body", ErrResponseInvalid)
	}
	return data, nil
}
