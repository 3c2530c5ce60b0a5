package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

func newTrackingSyncService(db *gorm.DB, baseURL string) *TrackingSyncService {
	return NewTrackingSyncService(
		repository.NewOrderRepository(db),
		repository.NewShipmentRepository(db),
		newSettingService(db, baseURL),
		NewAuditService(repository.NewAuditLogRepository(db)),
		config.ShippingConfig{TrackingDelayMS: 0},
	)
}

func TestMapAggregatorStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Delivered", constants.OrderStatusDelivered},
		{"completed", constants.OrderStatusDelivered},
		{"Out For Delivery", constants.OrderStatusOutForDelivery},
		{"in transit", constants.OrderStatusInTransit},
		{"Collected", constants.OrderStatusInTransit},
		{"pickup scheduled", constants.OrderStatusReadyToShip},
		{"Cancelled", constants.OrderStatusCancelled},
		{"canceled", constants.OrderStatusCancelled},
		{"Returned", constants.OrderStatusCancelled},
		{"Return To Sender", constants.OrderStatusCancelled},
		{"some new upstream phrase", constants.OrderStatusInTransit},
		{"", constants.OrderStatusInTransit},
	}
	for _, tc := range cases {
		if got := mapAggregatorStatus(tc.raw); got != tc.want {
			t.Fatalf("mapAggregatorStatus(%q) want %s got %s", tc.raw, tc.want, got)
		}
	}

	// 映射结果再次映射应落在同一状态，轮询多轮不会抖动
	for _, status := range []string{"in transit", "out for delivery", "delivered", "cancelled"} {
		first := mapAggregatorStatus(status)
		if second := mapAggregatorStatus(first); second != first {
			t.Fatalf("mapping not stable: %s -> %s -> %s", status, first, second)
		}
	}
}

func TestTrackingSyncAbortsWhenNotConfigured(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTrackingSyncService(db, "")

	stats, err := svc.Run(context.Background())
	if !errors.Is(err, ErrShippingNotConfigured) {
		t.Fatalf("want ErrShippingNotConfigured got %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("aborted run must process nothing, got %d", stats.Processed)
	}
}

func TestTrackingSyncNoopWhenGlobalFlagOff(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, false)
	seedOrderWithShipment(t, db, "KD20260801000001", constants.OrderStatusInTransit, "EP-AWB-1", true)

	svc := newTrackingSyncService(db, "")
	stats, err := svc.Run(context.Background())
	if !errors.Is(err, ErrTrackingSyncDisabled) {
		t.Fatalf("want ErrTrackingSyncDisabled got %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("disabled run must process nothing, got %d", stats.Processed)
	}
}

const trackingInTransitBody = `{
	"api_status": "Success",
	"error_code": "0",
	"result": [{
		"status": "Success",
		"awb": "EP-AWB-1",
		"latest_status": "In Transit",
		"latest_description": "Departed from hub KUL",
		"tracking": [
			{"event_code": "T01", "event_name": "Collected", "description": "Parcel collected", "location": "Shah Alam", "event_date": "2026-08-27 09:15:00"},
			{"event_code": "T02", "event_name": "In Transit", "description": "Departed from hub KUL", "location": "Kuala Lumpur", "event_date": "2026-08-27 18:40:00"}
		]
	}]
}`

func TestTrackingSyncAdvancesOrderAndReplacesEvents(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, shipment := seedOrderWithShipment(t, db, "KD20260801000002", constants.OrderStatusProcessing, "EP-AWB-1", true)

	// 人工事件必须在整组替换后幸存
	manual := &models.ShipmentTrackingEvent{
		ShipmentID: shipment.ID,
		Source:     constants.TrackingEventSourceManual,
		EventName:  "Customer notified by phone",
	}
	if err := db.Create(manual).Error; err != nil {
		t.Fatalf("seed manual event failed: %v", err)
	}
	stale := &models.ShipmentTrackingEvent{
		ShipmentID: shipment.ID,
		Source:     constants.TrackingEventSourceAggregator,
		EventName:  "Old aggregator event",
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale event failed: %v", err)
	}

	server := newGatewayServer(t, gatewayHandler{
		"EPTrackingBulk": func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("bulk[0][awb_no]") != "EP-AWB-1" {
				t.Errorf("unexpected awb_no %q", r.FormValue("bulk[0][awb_no]"))
			}
			writeJSON(w, trackingInTransitBody)
		},
	})

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Processed != 1 || stats.Updated != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusInTransit {
		t.Fatalf("order status want in_transit got %s", updated.Status)
	}
	if updated.ShippedAt == nil {
		t.Fatalf("shipped_at must be set on first transit")
	}
	firstShippedAt := *updated.ShippedAt

	var events []models.ShipmentTrackingEvent
	if err := db.Where("shipment_id = ?", shipment.ID).Find(&events).Error; err != nil {
		t.Fatalf("load events failed: %v", err)
	}
	var aggregator, manualCount int
	for _, event := range events {
		switch event.Source {
		case constants.TrackingEventSourceAggregator:
			aggregator++
			if event.EventName == "Old aggregator event" {
				t.Fatalf("stale aggregator event must be replaced")
			}
		case constants.TrackingEventSourceManual:
			manualCount++
		}
	}
	if aggregator != 2 || manualCount != 1 {
		t.Fatalf("want 2 aggregator + 1 manual events, got %d + %d", aggregator, manualCount)
	}

	// 第二轮返回相同状态，状态与 shipped_at 均不得变化
	stats, err = svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if stats.Updated != 0 || stats.Skipped != 1 {
		t.Fatalf("second run should skip, got %+v", stats)
	}
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !updated.ShippedAt.Equal(firstShippedAt) {
		t.Fatalf("shipped_at must not change on repeat sync")
	}
}

func TestTrackingSyncNeverRegressesStatus(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000003", constants.OrderStatusOutForDelivery, "EP-AWB-1", true)

	server := newGatewayServer(t, gatewayHandler{
		"EPTrackingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, trackingInTransitBody)
		},
	})

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Updated != 0 || stats.Skipped != 1 {
		t.Fatalf("regressive status must be skipped, got %+v", stats)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusOutForDelivery {
		t.Fatalf("status regressed to %s", updated.Status)
	}
}

func TestTrackingSyncSkipsOptedOutAndTerminalOrders(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	optedOut, _ := seedOrderWithShipment(t, db, "KD20260801000004", constants.OrderStatusInTransit, "EP-AWB-OPTOUT", false)
	seedOrderWithShipment(t, db, "KD20260801000005", constants.OrderStatusDelivered, "EP-AWB-DONE", true)
	seedOrderWithShipment(t, db, "KD20260801000006", constants.OrderStatusCancelled, "EP-AWB-CXL", true)

	// 任何轨迹请求都不应发生
	server := newGatewayServer(t, gatewayHandler{})

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("no order should be selected, got %d", stats.Processed)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, optedOut.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusInTransit {
		t.Fatalf("opted out order must stay untouched, got %s", reloaded.Status)
	}
}

func TestTrackingSyncCollectsPerOrderFailures(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	seedOrderWithShipment(t, db, "KD20260801000007", constants.OrderStatusReadyToShip, "EP-AWB-BAD", true)
	seedOrderWithShipment(t, db, "KD20260801000008", constants.OrderStatusReadyToShip, "EP-AWB-1", true)

	server := newGatewayServer(t, gatewayHandler{
		"EPTrackingBulk": func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("bulk[0][awb_no]") == "EP-AWB-BAD" {
				writeJSON(w, `{"api_status": "Failed", "error_code": "5", "error_remark": "awb not found"}`)
				return
			}
			writeJSON(w, trackingInTransitBody)
		},
	})

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Processed != 2 || stats.Failed != 1 || stats.Updated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("want one collected error, got %v", stats.Errors)
	}
}

const trackingCancelledBody = `{
	"api_status": "Success",
	"error_code": "0",
	"result": [{
		"status": "Success",
		"awb": "EP-AWB-1",
		"latest_status": "Cancelled",
		"latest_description": "Shipment cancelled by courier",
		"tracking": [
			{"event_code": "T09", "event_name": "Cancelled", "description": "Shipment cancelled by courier", "location": "Kuala Lumpur", "event_date": "2026-08-27 20:00:00"}
		]
	}]
}`

func TestTrackingSyncRecordsUpstreamCancellation(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, shipment := seedOrderWithShipment(t, db, "KD20260801000009", constants.OrderStatusInTransit, "EP-AWB-1", true)

	server := newGatewayServer(t, gatewayHandler{
		"EPTrackingBulk": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, trackingCancelledBody)
		},
	})

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Processed != 1 || stats.Updated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var updated models.Order
	if err := db.First(&updated, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCancelled {
		t.Fatalf("order status want cancelled got %s", updated.Status)
	}
	if updated.CancelledAt == nil {
		t.Fatalf("cancelled_at must be set on upstream cancellation")
	}

	var reloadedShipment models.Shipment
	if err := db.First(&reloadedShipment, shipment.ID).Error; err != nil {
		t.Fatalf("reload shipment failed: %v", err)
	}
	if reloadedShipment.Status != constants.ShipmentStatusCancelled {
		t.Fatalf("shipment status want cancelled got %s", reloadedShipment.Status)
	}

	// 取消是吸收态，下一轮不再选中该订单
	stats, err = svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("cancelled order must not be selected again, got %d", stats.Processed)
	}
}

// 轮询产生的状态变化不发送客户邮件，服务不得持有队列客户端。
// 结构体字段递归检查，给同步路径接入队列的改动一个失败点。
func TestTrackingSyncHoldsNoQueueDependency(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTrackingSyncService(db, "")
	assertNoQueueField(t, reflect.TypeOf(svc), map[reflect.Type]bool{}, "TrackingSyncService")
}

func assertNoQueueField(t *testing.T, typ reflect.Type, seen map[reflect.Type]bool, path string) {
	t.Helper()
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct || seen[typ] {
		return
	}
	seen[typ] = true
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := field.Type.String()
		if strings.Contains(name, "queue.") || strings.Contains(name, "asynq.") {
			t.Fatalf("%s.%s must not reach a task queue, has type %s", path, field.Name, name)
		}
		assertNoQueueField(t, field.Type, seen, path+"."+field.Name)
	}
}

func TestTrackingSyncHonoursCancelledContext(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	seedOrderWithShipment(t, db, "KD20260801000010", constants.OrderStatusInTransit, "EP-AWB-1", true)

	// 任何轨迹请求都不应发生
	server := newGatewayServer(t, gatewayHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTrackingSyncService(db, gatewayBaseURL(server))
	stats, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("cancelled run must process nothing, got %d", stats.Processed)
	}
	if len(stats.Errors) != 1 || !strings.Contains(stats.Errors[0], "sync cancelled") {
		t.Fatalf("want cancellation note, got %v", stats.Errors)
	}
}

func TestTrackingSyncDelayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepWithContext(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("wait must end with the context, took %s", elapsed)
	}
}
