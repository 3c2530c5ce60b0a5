package public

import (
	"errors"
	"strconv"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	AddressID        uint               `json:"address_id" binding:"required"`
	Items            []OrderItemRequest `json:"items" binding:"required"`
	CourierServiceID string             `json:"courier_service_id"`
}

// CreateOrder 客户下单
func (h *Handler) CreateOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		CustomerID:       customerID,
		AddressID:        req.AddressID,
		Items:            toOrderItemInputs(req.Items),
		CourierServiceID: req.CourierServiceID,
		ClientIP:         c.ClientIP(),
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, order)
}

// GetMyOrders 当前客户订单列表
func (h *Handler) GetMyOrders(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListCustomerOrders(service.ListCustomerOrdersInput{
		CustomerID: customerID,
		Page:       page,
		PageSize:   pageSize,
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, orders, pagination)
}

// GetMyOrder 当前客户订单详情
func (h *Handler) GetMyOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}

	order, err := h.OrderService.GetCustomerOrder(uint(orderID), customerID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	response.Success(c, order)
}

// QuoteShippingRatesRequest 下单前运费询价请求
type QuoteShippingRatesRequest struct {
	AddressID uint               `json:"address_id" binding:"required"`
	Items     []OrderItemRequest `json:"items" binding:"required"`
}

// QuoteShippingRates 下单前运费询价
func (h *Handler) QuoteShippingRates(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req QuoteShippingRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	options, err := h.OrderService.QuoteShippingRates(c.Request.Context(), service.QuoteShippingRatesInput{
		CustomerID: customerID,
		AddressID:  req.AddressID,
		Items:      toOrderItemInputs(req.Items),
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, gin.H{"options": options})
}

func toOrderItemInputs(items []OrderItemRequest) []service.CreateOrderItemInput {
	inputs := make([]service.CreateOrderItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, service.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return inputs
}

func respondOrderCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderItemsInvalid):
		respondError(c, response.CodeBadRequest, "invalid order items", nil)
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrStockInsufficient):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrAddressNotFound):
		respondError(c, response.CodeNotFound, "address not found", nil)
	case errors.Is(err, service.ErrInvalidAddress):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidWeight):
		respondError(c, response.CodeBadRequest, "order weight must be greater than zero", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrShippingNotConfigured):
		respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
	case errors.Is(err, service.ErrUpstream):
		respondError(c, response.CodeUpstream, "courier platform request failed", err)
	default:
		respondError(c, response.CodeInternal, "order create failed", err)
	}
}
