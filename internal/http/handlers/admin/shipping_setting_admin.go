package admin

import (
	"errors"
	"strconv"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetShippingSettings 获取物流设置列表
func (h *Handler) GetShippingSettings(c *gin.Context) {
	settings, err := h.ShippingSettingService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "shipping settings fetch failed", err)
		return
	}
	response.Success(c, settings)
}

// SaveShippingSettingRequest 保存物流设置请求
type SaveShippingSettingRequest struct {
	ID                    uint   `json:"id"`
	APIKey                string `json:"api_key" binding:"required"`
	Environment           string `json:"environment" binding:"required"`
	CourierStrategy       string `json:"courier_strategy"`
	AutoUpdateOrderStatus *bool  `json:"auto_update_order_status"`
	PickupName            string `json:"pickup_name" binding:"required"`
	PickupPhone           string `json:"pickup_phone" binding:"required"`
	PickupLine1           string `json:"pickup_line1" binding:"required"`
	PickupLine2           string `json:"pickup_line2"`
	PickupCity            string `json:"pickup_city" binding:"required"`
	PickupPostcode        string `json:"pickup_postcode" binding:"required"`
	PickupState           string `json:"pickup_state" binding:"required"`
	PickupCountry         string `json:"pickup_country"`
	SkipConnectivityCheck bool   `json:"skip_connectivity_check"`
}

// SaveShippingSetting 保存并启用物流设置
// 默认先用余额查询验证凭证，再落库并停用其它行。
func (h *Handler) SaveShippingSetting(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req SaveShippingSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	autoUpdate := true
	if req.AutoUpdateOrderStatus != nil {
		autoUpdate = *req.AutoUpdateOrderStatus
	}

	setting, err := h.ShippingSettingService.Save(c.Request.Context(), service.SaveShippingSettingInput{
		ID:                    req.ID,
		APIKey:                req.APIKey,
		Environment:           req.Environment,
		CourierStrategy:       req.CourierStrategy,
		AutoUpdateOrderStatus: autoUpdate,
		PickupName:            req.PickupName,
		PickupPhone:           req.PickupPhone,
		PickupLine1:           req.PickupLine1,
		PickupLine2:           req.PickupLine2,
		PickupCity:            req.PickupCity,
		PickupPostcode:        req.PickupPostcode,
		PickupState:           req.PickupState,
		PickupCountry:         req.PickupCountry,
		SkipConnectivityCheck: req.SkipConnectivityCheck,
		AdminID:               adminID,
		AdminName:             getAdminName(c),
		RequestID:             getRequestID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidAddress):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrUpstream):
			respondError(c, response.CodeUpstream, "courier platform connectivity check failed", err)
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeNotFound, "shipping setting not found", nil)
		default:
			respondError(c, response.CodeInternal, "shipping setting save failed", err)
		}
		return
	}

	response.Success(c, setting)
}

// DeleteShippingSetting 删除物流设置
func (h *Handler) DeleteShippingSetting(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	settingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || settingID == 0 {
		respondError(c, response.CodeBadRequest, "invalid shipping setting id", nil)
		return
	}

	if err := h.ShippingSettingService.Delete(uint(settingID), adminID, getAdminName(c), getRequestID(c)); err != nil {
		switch {
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeNotFound, "shipping setting not found", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "invalid shipping setting id", nil)
		default:
			respondError(c, response.CodeInternal, "shipping setting delete failed", err)
		}
		return
	}

	response.Success(c, nil)
}
