package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ReportService 销售报表服务
type ReportService struct {
	orderRepo repository.OrderRepository
}

// NewReportService 创建报表服务
func NewReportService(orderRepo repository.OrderRepository) *ReportService {
	return &ReportService{orderRepo: orderRepo}
}

// SalesSummary 销售汇总
type SalesSummary struct {
	From            time.Time    `json:"from"`
	To              time.Time    `json:"to"`
	OrderCount      int64        `json:"order_count"`
	DeliveredCount  int64        `json:"delivered_count"`
	CancelledCount  int64        `json:"cancelled_count"`
	TotalSales      models.Money `json:"total_sales"`
	TotalShipping   models.Money `json:"total_shipping"`
	AverageOrderRM  models.Money `json:"average_order_rm"`
	Currency        string       `json:"currency"`
}

type salesAggregateRow struct {
	OrderCount    int64
	TotalSales    models.Money
	TotalShipping models.Money
}

// GetSalesSummary 按时间区间统计销售额（取消订单不计入销售额）
func (s *ReportService) GetSalesSummary(from, to time.Time) (*SalesSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: invalid date range", ErrInvalidInput)
	}

	var row salesAggregateRow
	if err := models.DB.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("status != ?", constants.OrderStatusCancelled).
		Select("COUNT(*) AS order_count, COALESCE(SUM(total_amount), 0) AS total_sales, COALESCE(SUM(shipping_amount), 0) AS total_shipping").
		Scan(&row).Error; err != nil {
		return nil, err
	}

	var delivered, cancelled int64
	if err := models.DB.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("status = ?", constants.OrderStatusDelivered).
		Count(&delivered).Error; err != nil {
		return nil, err
	}
	if err := models.DB.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("status = ?", constants.OrderStatusCancelled).
		Count(&cancelled).Error; err != nil {
		return nil, err
	}

	summary := &SalesSummary{
		From:           from,
		To:             to,
		OrderCount:     row.OrderCount,
		DeliveredCount: delivered,
		CancelledCount: cancelled,
		TotalSales:     row.TotalSales,
		TotalShipping:  row.TotalShipping,
		Currency:       constants.DefaultCurrency,
	}
	if row.OrderCount > 0 {
		summary.AverageOrderRM = models.NewMoneyFromDecimal(
			row.TotalSales.Div(decimal.NewFromInt(row.OrderCount)),
		)
	}
	return summary, nil
}

// ExportOrdersCSV 导出区间内订单明细为 CSV
func (s *ReportService) ExportOrdersCSV(from, to time.Time) ([]byte, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: invalid date range", ErrInvalidInput)
	}

	orders, _, err := s.orderRepo.ListAdmin(repository.OrderListFilter{
		Page:        1,
		PageSize:    10000,
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	if err != nil {
		return nil, ErrOrderFetchFailed
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{
		"order_no", "created_at", "status", "customer_id",
		"subtotal", "shipping", "total", "currency",
		"tracking_number", "courier_name", "ship_state", "ship_postcode",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, order := range orders {
		record := []string{
			order.OrderNo,
			order.CreatedAt.Format(time.RFC3339),
			order.Status,
			fmt.Sprintf("%d", order.CustomerID),
			order.SubtotalAmount.StringFixed(2),
			order.ShippingAmount.StringFixed(2),
			order.TotalAmount.StringFixed(2),
			order.Currency,
			order.TrackingNumber,
			order.CourierName,
			order.ShipState,
			order.ShipPostcode,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
