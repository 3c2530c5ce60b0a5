package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSalesSummary 销售汇总报表
func (h *Handler) GetSalesSummary(c *gin.Context) {
	from, to, ok := parseReportRange(c)
	if !ok {
		return
	}

	summary, err := h.ReportService.GetSalesSummary(from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "sales summary failed", err)
		return
	}

	response.Success(c, summary)
}

// ExportOrdersCSV 导出订单 CSV
func (h *Handler) ExportOrdersCSV(c *gin.Context) {
	from, to, ok := parseReportRange(c)
	if !ok {
		return
	}

	data, err := h.ReportService.ExportOrdersCSV(from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "order export failed", err)
		return
	}

	filename := fmt.Sprintf("orders_%s_%s.csv", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// parseReportRange 解析报表时间区间，默认最近 30 天，to 为闭区间日期时取次日零点。
func parseReportRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := parseDateQuery(c.Query("from")); raw != nil {
		from = *raw
	}
	if raw := parseDateQuery(c.Query("to")); raw != nil {
		to = raw.AddDate(0, 0, 1)
	}
	if to.Before(from) {
		respondError(c, response.CodeBadRequest, "invalid date range", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
