package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/courier/easyparcel"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

// TrackingSyncService 物流轨迹同步服务
// 由定时任务触发，逐单查询聚合平台轨迹并推进订单状态。
// 该服务不持有队列客户端，轮询产生的状态变化不会向客户发邮件。
type TrackingSyncService struct {
	orderRepo      repository.OrderRepository
	shipmentRepo   repository.ShipmentRepository
	settingService *ShippingSettingService
	auditService   *AuditService
	cfg            config.ShippingConfig
}

// NewTrackingSyncService 创建物流轨迹同步服务
func NewTrackingSyncService(
	orderRepo repository.OrderRepository,
	shipmentRepo repository.ShipmentRepository,
	settingService *ShippingSettingService,
	auditService *AuditService,
	cfg config.ShippingConfig,
) *TrackingSyncService {
	return &TrackingSyncService{
		orderRepo:      orderRepo,
		shipmentRepo:   shipmentRepo,
		settingService: settingService,
		auditService:   auditService,
		cfg:            cfg,
	}
}

// TrackingSyncStats 单次同步的统计结果
type TrackingSyncStats struct {
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"-"`
	Errors    []string      `json:"errors,omitempty"`
}

// aggregatorStatusMap 聚合平台轨迹状态到本地订单状态的映射
// 未命中的状态一律按运输中处理，避免上游新增词汇时漏单。
var aggregatorStatusMap = map[string]string{
	"pending":          constants.OrderStatusReadyToShip,
	"pickup scheduled": constants.OrderStatusReadyToShip,
	"collected":        constants.OrderStatusInTransit,
	"picked up":        constants.OrderStatusInTransit,
	"in transit":       constants.OrderStatusInTransit,
	"arrived at hub":   constants.OrderStatusInTransit,
	"departed":         constants.OrderStatusInTransit,
	"out for delivery": constants.OrderStatusOutForDelivery,
	"delivering":       constants.OrderStatusOutForDelivery,
	"delivered":        constants.OrderStatusDelivered,
	"completed":        constants.OrderStatusDelivered,
	"cancelled":        constants.OrderStatusCancelled,
	"canceled":         constants.OrderStatusCancelled,
	"returned":         constants.OrderStatusCancelled,
	"return to sender": constants.OrderStatusCancelled,
}

// mapAggregatorStatus 归一化聚合平台状态
func mapAggregatorStatus(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := aggregatorStatusMap[normalized]; ok {
		return status
	}
	return constants.OrderStatusInTransit
}

// Run 执行一轮轨迹同步
// 单个订单失败只计入统计，不中断整轮；全局自动更新关闭时直接返回。
func (s *TrackingSyncService) Run(ctx context.Context) (*TrackingSyncStats, error) {
	start := time.Now()
	stats := &TrackingSyncStats{}

	setting, cfg, err := s.settingService.ResolveConfig()
	if err != nil {
		return stats, err
	}
	if !setting.AutoUpdateOrderStatus {
		logger.Infow("tracking_sync_disabled")
		return stats, ErrTrackingSyncDisabled
	}

	orders, err := s.orderRepo.ListTrackable(s.cfg.SyncBatchSize)
	if err != nil {
		logger.Errorw("tracking_sync_list_failed", "error", err)
		return stats, ErrOrderFetchFailed
	}

	delay := time.Duration(s.cfg.TrackingDelayMS) * time.Millisecond
	for i := range orders {
		if err := ctx.Err(); err != nil {
			stats.Errors = append(stats.Errors, "sync cancelled: "+err.Error())
			break
		}
		if i > 0 && delay > 0 {
			if err := sleepWithContext(ctx, delay); err != nil {
				stats.Errors = append(stats.Errors, "sync cancelled: "+err.Error())
				break
			}
		}

		order := &orders[i]
		stats.Processed++

		updated, err := s.syncOrder(ctx, cfg, order)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("order %s: %v", order.OrderNo, err))
			logger.Warnw("tracking_sync_order_failed",
				"order_no", order.OrderNo,
				"tracking_number", order.TrackingNumber,
				"error", err,
			)
			continue
		}
		if updated {
			stats.Updated++
		} else {
			stats.Skipped++
		}
	}

	stats.Duration = time.Since(start)
	logger.Infow("tracking_sync_completed",
		"processed", stats.Processed,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	if err := s.auditService.Record(RecordAuditInput{
		ActorType: constants.AuditActorSystem,
		Action:    constants.AuditActionTrackingSyncRun,
		Resource:  "tracking_sync",
		Detail: models.JSON{
			"processed":   stats.Processed,
			"updated":     stats.Updated,
			"skipped":     stats.Skipped,
			"failed":      stats.Failed,
			"duration_ms": stats.Duration.Milliseconds(),
		},
	}); err != nil {
		logger.Warnw("tracking_sync_audit_failed", "error", err)
	}

	return stats, nil
}

// syncOrder 同步单个订单的轨迹与状态
// 返回值表示订单状态是否发生了推进。
func (s *TrackingSyncService) syncOrder(ctx context.Context, cfg *easyparcel.Config, order *models.Order) (bool, error) {
	result, err := easyparcel.TrackParcel(ctx, cfg, order.TrackingNumber)
	if err != nil {
		return false, mapCourierError(err)
	}

	shipment, err := s.shipmentRepo.GetByOrderID(order.ID)
	if err != nil {
		return false, err
	}

	nextStatus := mapAggregatorStatus(result.LatestStatus)
	advance := nextStatus != order.Status && constants.IsForwardOrderTransition(order.Status, nextStatus)

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if shipment != nil {
			events := buildTrackingEvents(shipment.ID, result.Events)
			if err := s.shipmentRepo.WithTx(tx).ReplaceAggregatorEvents(shipment.ID, events); err != nil {
				return err
			}
			shipmentUpdates := map[string]interface{}{
				"status_description": result.LatestDescription,
			}
			if advance {
				shipmentUpdates["status"] = nextStatus
				if nextStatus == constants.OrderStatusDelivered && shipment.ActualDelivery == nil {
					shipmentUpdates["actual_delivery"] = time.Now()
				}
			}
			if err := s.shipmentRepo.WithTx(tx).Update(shipment.ID, shipmentUpdates); err != nil {
				return err
			}
		}

		if !advance {
			return nil
		}

		orderUpdates := map[string]interface{}{}
		if constants.OrderStatusRank(nextStatus) >= constants.OrderStatusRank(constants.OrderStatusInTransit) && order.ShippedAt == nil {
			orderUpdates["shipped_at"] = time.Now()
		}
		if nextStatus == constants.OrderStatusDelivered && order.DeliveredAt == nil {
			orderUpdates["delivered_at"] = time.Now()
		}
		if nextStatus == constants.OrderStatusCancelled && order.CancelledAt == nil {
			orderUpdates["cancelled_at"] = time.Now()
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, nextStatus, orderUpdates)
	})
	if err != nil {
		return false, err
	}

	if advance {
		logger.Infow("tracking_sync_order_advanced",
			"order_no", order.OrderNo,
			"from", order.Status,
			"to", nextStatus,
			"latest_status", result.LatestStatus,
		)
	}
	return advance, nil
}

// buildTrackingEvents 将聚合平台轨迹转换为本地事件记录
func buildTrackingEvents(shipmentID uint, events []easyparcel.TrackingEvent) []models.ShipmentTrackingEvent {
	out := make([]models.ShipmentTrackingEvent, 0, len(events))
	for _, event := range events {
		out = append(out, models.ShipmentTrackingEvent{
			ShipmentID:  shipmentID,
			Source:      constants.TrackingEventSourceAggregator,
			EventCode:   event.EventCode,
			EventName:   event.EventName,
			Description: event.Description,
			Location:    event.Location,
			EventTime:   parseEventTime(event.EventTime),
		})
	}
	return out
}

// sleepWithContext 在两次上游调用之间等待，上下文取消时立即返回
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseEventTime 解析聚合平台时间字符串，无法解析时取当前时间
func parseEventTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}
