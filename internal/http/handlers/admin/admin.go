package admin

import (
	"errors"

	"github.com/kedai-next/internal/cache"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// 与 public 包共用同一份站点配置缓存
const publicConfigCacheKey = "public:config"

// LoginRequest 登录请求
type LoginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if h.CaptchaService != nil && h.CaptchaService.Enabled() {
		if captchaErr := h.CaptchaService.Verify(req.CaptchaID, req.CaptchaCode); captchaErr != nil {
			if errors.Is(captchaErr, service.ErrCaptchaInvalid) {
				respondError(c, response.CodeBadRequest, "captcha verification failed", nil)
				return
			}
			respondError(c, response.CodeInternal, "captcha verification unavailable", captchaErr)
			return
		}
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrCredentialsInvalid) {
			respondError(c, response.CodeUnauthorized, "invalid username or password", nil)
			return
		}
		respondError(c, response.CodeInternal, "login failed", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"is_super": admin.IsSuper,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsInvalid):
			respondError(c, response.CodeBadRequest, "old password incorrect", nil)
		case errors.Is(err, service.ErrPasswordTooWeak):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrAdminNotFound):
			respondError(c, response.CodeNotFound, "admin not found", nil)
		default:
			respondError(c, response.CodeInternal, "password update failed", err)
		}
		return
	}

	response.Success(c, nil)
}

// GetSettings 获取设置
func (h *Handler) GetSettings(c *gin.Context) {
	key := c.DefaultQuery("key", constants.SettingKeySiteConfig)

	value, err := h.SettingService.GetByKey(key)
	if err != nil {
		respondError(c, response.CodeInternal, "settings fetch failed", err)
		return
	}
	if value == nil {
		response.Success(c, gin.H{})
		return
	}

	response.Success(c, value)
}

// UpdateSettingsRequest 更新设置请求
type UpdateSettingsRequest struct {
	Key   string                 `json:"key" binding:"required"`
	Value map[string]interface{} `json:"value" binding:"required"`
}

// UpdateSettings 更新设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	value, err := h.SettingService.Update(req.Key, req.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, response.CodeBadRequest, "unknown setting key", nil)
			return
		}
		respondError(c, response.CodeInternal, "settings save failed", err)
		return
	}

	if req.Key == constants.SettingKeySiteConfig {
		_ = cache.Del(c.Request.Context(), publicConfigCacheKey)
	}
	response.Success(c, value)
}
