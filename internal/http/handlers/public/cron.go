package public

import (
	"errors"
	"fmt"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateTracking 定时任务入口：批量同步在途订单的物流轨迹
// 由外部调度器（cron）携带令牌调用，同一时刻仅允许一个实例运行。
func (h *Handler) UpdateTracking(c *gin.Context) {
	stats, err := h.TrackingSyncService.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTrackingSyncDisabled):
			response.SuccessWithMsg(c, "tracking sync is disabled", gin.H{
				"stats": service.TrackingSyncStats{},
			})
		case errors.Is(err, service.ErrShippingNotConfigured):
			respondError(c, response.CodeBadRequest, "shipping is not configured", nil)
		default:
			respondError(c, response.CodeInternal, "tracking sync failed", err)
		}
		return
	}

	data := gin.H{
		"stats":       stats,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		data["errors"] = stats.Errors
	}
	message := fmt.Sprintf("processed %d shipments, %d updated, %d skipped, %d failed",
		stats.Processed, stats.Updated, stats.Skipped, stats.Failed)
	response.SuccessWithMsg(c, message, data)
}
