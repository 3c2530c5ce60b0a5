package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminOrders 获取订单列表 (Admin)
func (h *Handler) GetAdminOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	input := service.ListOrdersInput{
		Page:           page,
		PageSize:       pageSize,
		Status:         strings.TrimSpace(c.Query("status")),
		OrderNo:        strings.TrimSpace(c.Query("order_no")),
		TrackingNumber: strings.TrimSpace(c.Query("tracking_number")),
		CourierName:    strings.TrimSpace(c.Query("courier_name")),
	}
	if customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 64); err == nil {
		input.CustomerID = uint(customerID)
	}
	input.CreatedFrom = parseDateQuery(c.Query("created_from"))
	input.CreatedTo = parseDateQuery(c.Query("created_to"))

	orders, total, err := h.OrderAdminService.List(input)
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

// GetAdminOrder 获取订单详情 (Admin)
func (h *Handler) GetAdminOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.OrderAdminService.Get(orderID)
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

// ConfirmOrder 确认订单（pending -> confirmed）
func (h *Handler) ConfirmOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	if err := h.OrderAdminService.ConfirmOrder(orderID, adminID, getAdminName(c), getRequestID(c)); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "order cannot be confirmed in its current status", nil)
		default:
			respondError(c, response.CodeInternal, "order confirm failed", err)
		}
		return
	}

	response.Success(c, nil)
}

// BulkUpdateOrdersRequest 批量更新订单请求
type BulkUpdateOrdersRequest struct {
	OrderIDs          []uint   `json:"order_ids" binding:"required"`
	Action            string   `json:"action" binding:"required"`
	TrackingNumbers   []string `json:"tracking_numbers"`
	ShippingCarrier   string   `json:"shipping_carrier"`
	EstimatedDelivery string   `json:"estimated_delivery"` // RFC3339，可选
}

// BulkUpdateOrders 批量更新订单状态
// 每个订单独立处理，部分失败不影响其余订单。
func (h *Handler) BulkUpdateOrders(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req BulkUpdateOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	input := service.BulkUpdateInput{
		OrderIDs:        req.OrderIDs,
		Action:          strings.TrimSpace(req.Action),
		TrackingNumbers: req.TrackingNumbers,
		ShippingCarrier: strings.TrimSpace(req.ShippingCarrier),
		AdminID:         adminID,
		AdminName:       getAdminName(c),
		RequestID:       getRequestID(c),
	}
	if raw := strings.TrimSpace(req.EstimatedDelivery); raw != "" {
		eta, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "estimated_delivery must be RFC3339", nil)
			return
		}
		input.EstimatedDelivery = &eta
	}

	result, err := h.OrderAdminService.BulkUpdate(input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "bulk update failed", err)
		return
	}

	response.Success(c, result)
}

// AppendTrackingEventRequest 人工追加轨迹事件请求
type AppendTrackingEventRequest struct {
	EventCode   string `json:"event_code"`
	EventName   string `json:"event_name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
	EventTime   string `json:"event_time"` // RFC3339，留空取当前时间
}

// AppendTrackingEvent 人工追加运单轨迹事件
func (h *Handler) AppendTrackingEvent(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AppendTrackingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	input := service.AppendTrackingEventInput{
		OrderID:     orderID,
		EventCode:   strings.TrimSpace(req.EventCode),
		EventName:   strings.TrimSpace(req.EventName),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		AdminID:     adminID,
		AdminName:   getAdminName(c),
		RequestID:   getRequestID(c),
	}
	if raw := strings.TrimSpace(req.EventTime); raw != "" {
		eventTime, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "event_time must be RFC3339", nil)
			return
		}
		input.EventTime = &eventTime
	}

	event, err := h.OrderAdminService.AppendTrackingEvent(input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrShipmentNotFound):
			respondError(c, response.CodeBadRequest, "order has no shipment yet", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "tracking event append failed", err)
		}
		return
	}

	response.Success(c, event)
}

// AutoStatusUpdateRequest 自动状态更新开关请求
type AutoStatusUpdateRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetAutoStatusUpdate 设置订单是否参与轮询自动更新
func (h *Handler) SetAutoStatusUpdate(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AutoStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.OrderAdminService.SetAutoStatusUpdate(orderID, *req.Enabled, adminID, getAdminName(c), getRequestID(c)); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "auto status update toggle failed", err)
		return
	}

	response.Success(c, gin.H{"enabled": *req.Enabled})
}

func parseOrderID(c *gin.Context) (uint, bool) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", nil)
		return 0, false
	}
	return uint(orderID), true
}

func parseDateQuery(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}
