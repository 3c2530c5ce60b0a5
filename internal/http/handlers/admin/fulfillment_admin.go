package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetOrderShippingOptions 按订单询价可用快递服务
func (h *Handler) GetOrderShippingOptions(c *gin.Context) {
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

	options, err := h.RateService.GetShippingOptionsForOrder(c.Request.Context(), order)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
		case errors.Is(err, service.ErrInvalidAddress):
			respondError(c, response.CodeBadRequest, "delivery address incomplete", nil)
		case errors.Is(err, service.ErrInvalidWeight):
			respondError(c, response.CodeBadRequest, "order weight invalid", nil)
		case errors.Is(err, service.ErrUpstream):
			respondError(c, response.CodeUpstream, "courier platform unavailable", err)
		default:
			respondError(c, response.CodeInternal, "rate check failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"options": options,
		"order":   order,
	})
}

// FulfillOrderRequest 出货请求
type FulfillOrderRequest struct {
	ServiceID string `json:"service_id"` // 留空时按策略解析
}

// FulfillOrder 出货：询价、提交、付款一次完成
func (h *Handler) FulfillOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req FulfillOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "invalid request body", err)
			return
		}
	}

	output, err := h.FulfillmentService.Fulfill(c.Request.Context(), service.FulfillInput{
		OrderID:   orderID,
		ServiceID: strings.TrimSpace(req.ServiceID),
		AdminID:   adminID,
		AdminName: getAdminName(c),
		RequestID: getRequestID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "order cannot be fulfilled in its current status", nil)
		case errors.Is(err, service.ErrShipmentExists):
			respondError(c, response.CodeBadRequest, "order already has a shipment", nil)
		case errors.Is(err, service.ErrOrderItemsInvalid):
			respondError(c, response.CodeBadRequest, "order has no items", nil)
		case errors.Is(err, service.ErrInvalidWeight):
			respondError(c, response.CodeBadRequest, "order weight invalid", nil)
		case errors.Is(err, service.ErrInvalidAddress):
			respondError(c, response.CodeBadRequest, "delivery address incomplete", nil)
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrInsufficientBalance):
			respondError(c, response.CodeUpstream, "courier account balance insufficient", nil)
		case errors.Is(err, service.ErrPaymentFailed), errors.Is(err, service.ErrPaymentRejected):
			respondError(c, response.CodeUpstream, "courier payment failed", err)
		case errors.Is(err, service.ErrUpstream):
			respondError(c, response.CodeUpstream, "courier platform unavailable", err)
		default:
			respondError(c, response.CodeInternal, "fulfillment failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"shipment":        output.Shipment,
		"tracking_number": output.TrackingNumber,
		"courier_name":    output.CourierName,
		"label_url":       output.LabelURL,
	})
}

// DownloadLabelsRequest 批量下载面单请求
type DownloadLabelsRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required"`
}

// DownloadLabels 批量下载面单，打包为 ZIP 返回
// 部分订单取不到面单不阻塞整体下载，失败清单随响应头返回数量。
func (h *Handler) DownloadLabels(c *gin.Context) {
	var req DownloadLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	output, err := h.LabelService.DownloadLabels(c.Request.Context(), req.OrderIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "order_ids must not be empty", nil)
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
		case errors.Is(err, service.ErrNoLabelsAvailable):
			respondError(c, response.CodeNotFound, "no labels available for the selected orders", nil)
		default:
			respondError(c, response.CodeInternal, "label download failed", err)
		}
		return
	}

	filename := fmt.Sprintf("labels_%s.zip", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Label-Fetched", fmt.Sprintf("%d", output.Fetched))
	c.Header("X-Label-Failed", fmt.Sprintf("%d", len(output.Failures)))
	c.Data(http.StatusOK, "application/zip", output.Archive)
}

// RunTrackingSync 手动触发一轮轨迹同步
func (h *Handler) RunTrackingSync(c *gin.Context) {
	stats, err := h.TrackingSyncService.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
		case errors.Is(err, service.ErrTrackingSyncDisabled):
			respondError(c, response.CodeBadRequest, "automatic tracking updates are disabled", nil)
		default:
			respondError(c, response.CodeInternal, "tracking sync failed", err)
		}
		return
	}

	response.Success(c, stats)
}
