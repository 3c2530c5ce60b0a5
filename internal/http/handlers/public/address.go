package public

import (
	"errors"
	"strconv"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAddresses 获取当前客户地址簿
func (h *Handler) ListAddresses(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	addresses, err := h.AddressService.List(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "address fetch failed", err)
		return
	}

	response.Success(c, addresses)
}

// SaveAddressRequest 保存地址请求
type SaveAddressRequest struct {
	Label     string `json:"label"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Line1     string `json:"line1" binding:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" binding:"required"`
	Postcode  string `json:"postcode" binding:"required"`
	State     string `json:"state" binding:"required"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

func (r SaveAddressRequest) toServiceInput(id, customerID uint) service.SaveAddressInput {
	return service.SaveAddressInput{
		ID:         id,
		CustomerID: customerID,
		Label:      r.Label,
		Name:       r.Name,
		Phone:      r.Phone,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		Postcode:   r.Postcode,
		State:      r.State,
		Country:    r.Country,
		IsDefault:  r.IsDefault,
	}
}

// CreateAddress 新增地址
func (h *Handler) CreateAddress(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	address, err := h.AddressService.Save(req.toServiceInput(0, customerID))
	if err != nil {
		respondAddressSaveError(c, err)
		return
	}

	response.Success(c, address)
}

// UpdateAddress 更新地址
func (h *Handler) UpdateAddress(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	addressID, ok := parseAddressID(c)
	if !ok {
		return
	}

	var req SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	address, err := h.AddressService.Save(req.toServiceInput(addressID, customerID))
	if err != nil {
		respondAddressSaveError(c, err)
		return
	}

	response.Success(c, address)
}

// DeleteAddress 删除地址
func (h *Handler) DeleteAddress(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	addressID, ok := parseAddressID(c)
	if !ok {
		return
	}

	if err := h.AddressService.Delete(addressID, customerID); err != nil {
		if errors.Is(err, service.ErrAddressNotFound) {
			respondError(c, response.CodeNotFound, "address not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "address delete failed", err)
		return
	}

	response.Success(c, nil)
}

// SetDefaultAddress 设为默认地址
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	addressID, ok := parseAddressID(c)
	if !ok {
		return
	}

	if err := h.AddressService.SetDefault(addressID, customerID); err != nil {
		if errors.Is(err, service.ErrAddressNotFound) {
			respondError(c, response.CodeNotFound, "address not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "set default address failed", err)
		return
	}

	response.Success(c, nil)
}

func parseAddressID(c *gin.Context) (uint, bool) {
	addressID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || addressID == 0 {
		respondError(c, response.CodeBadRequest, "invalid address id", nil)
		return 0, false
	}
	return uint(addressID), true
}

func respondAddressSaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAddress):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrAddressNotFound):
		respondError(c, response.CodeNotFound, "address not found", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, "invalid address payload", nil)
	default:
		respondError(c, response.CodeInternal, "address save failed", err)
	}
}
