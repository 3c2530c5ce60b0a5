package admin

import (
	"strconv"
	"strings"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAuditLogs 获取审计日志列表
func (h *Handler) GetAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	input := service.ListAuditInput{
		Page:       page,
		PageSize:   pageSize,
		ActorType:  strings.TrimSpace(c.Query("actor_type")),
		Action:     strings.TrimSpace(c.Query("action")),
		Resource:   strings.TrimSpace(c.Query("resource")),
		ResourceID: strings.TrimSpace(c.Query("resource_id")),
	}
	if actorID, err := strconv.ParseUint(c.Query("actor_id"), 10, 64); err == nil {
		input.ActorID = uint(actorID)
	}
	input.CreatedFrom = parseDateQuery(c.Query("created_from"))
	input.CreatedTo = parseDateQuery(c.Query("created_to"))

	logs, total, err := h.AuditService.List(input)
	if err != nil {
		respondError(c, response.CodeInternal, "audit log fetch failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, logs, pagination)
}
