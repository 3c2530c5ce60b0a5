package public

import (
	"errors"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 客户注册请求
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Token     string                 `json:"token"`
	Customer  map[string]interface{} `json:"customer"`
	ExpiresAt string                 `json:"expires_at"`
}

// Register 客户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	customer, token, expiresAt, err := h.CustomerAuthService.Register(service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerExists):
			respondError(c, response.CodeBadRequest, "email already registered", nil)
		case errors.Is(err, service.ErrPasswordTooWeak):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "invalid email address", nil)
		default:
			respondError(c, response.CodeInternal, "registration failed", err)
		}
		return
	}

	response.Success(c, AuthResponse{
		Token: token,
		Customer: map[string]interface{}{
			"id":           customer.ID,
			"email":        customer.Email,
			"display_name": customer.DisplayName,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// CustomerLoginRequest 客户登录请求
type CustomerLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 客户登录
func (h *Handler) Login(c *gin.Context) {
	var req CustomerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	customer, token, expiresAt, err := h.CustomerAuthService.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsInvalid), errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeUnauthorized, "invalid email or password", nil)
		case errors.Is(err, service.ErrCustomerDisabled):
			respondError(c, response.CodeForbidden, "account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	response.Success(c, AuthResponse{
		Token: token,
		Customer: map[string]interface{}{
			"id":           customer.ID,
			"email":        customer.Email,
			"display_name": customer.DisplayName,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetProfile 获取当前客户资料
func (h *Handler) GetProfile(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	customer, err := h.CustomerAuthService.GetCustomerByID(customerID)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			respondError(c, response.CodeNotFound, "customer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "profile fetch failed", err)
		return
	}

	response.Success(c, customer)
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

// UpdateProfile 更新当前客户资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	customer, err := h.CustomerAuthService.UpdateProfile(customerID, req.DisplayName, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(c, response.CodeNotFound, "customer not found", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "nothing to update", nil)
		default:
			respondError(c, response.CodeInternal, "profile update failed", err)
		}
		return
	}

	response.Success(c, customer)
}

// ChangePasswordRequest 客户修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 客户修改密码
func (h *Handler) ChangePassword(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.CustomerAuthService.ChangePassword(customerID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsInvalid):
			respondError(c, response.CodeBadRequest, "old password incorrect", nil)
		case errors.Is(err, service.ErrPasswordTooWeak):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(c, response.CodeNotFound, "customer not found", nil)
		default:
			respondError(c, response.CodeInternal, "password update failed", err)
		}
		return
	}

	response.Success(c, nil)
}
