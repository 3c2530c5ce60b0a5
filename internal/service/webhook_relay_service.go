package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/queue"
)

// WebhookRelayService 群聊 Webhook 转发服务
// 订单与运单事件先入队，由 worker 投递到配置的群聊 Webhook；
// 重试完全交给队列的普通重试计数。
type WebhookRelayService struct {
	cfg         config.ChatRelayConfig
	queueClient *queue.Client
}

// NewWebhookRelayService 创建群聊 Webhook 转发服务
func NewWebhookRelayService(cfg config.ChatRelayConfig, queueClient *queue.Client) *WebhookRelayService {
	return &WebhookRelayService{cfg: cfg, queueClient: queueClient}
}

// Enabled 判断转发是否启用
func (s *WebhookRelayService) Enabled() bool {
	return s != nil && s.cfg.Enabled && strings.TrimSpace(s.cfg.WebhookURL) != "" && s.queueClient.Enabled()
}

// NotifyOrderEvent 推送订单事件
// 失败只记日志，业务主流程不受转发影响。
func (s *WebhookRelayService) NotifyOrderEvent(event, orderNo string, detail models.JSON) {
	if !s.Enabled() {
		return
	}
	body, err := json.Marshal(detail)
	if err != nil {
		logger.Warnw("chat_relay_marshal_failed", "event", event, "order_no", orderNo, "error", err)
		return
	}
	payload := queue.ChatWebhookRelayPayload{
		Event:      event,
		OrderNo:    orderNo,
		OccurredAt: time.Now().Unix(),
		Body:       body,
	}
	if err := s.queueClient.EnqueueChatWebhookRelay(payload, s.cfg.MaxRetry); err != nil {
		logger.Warnw("chat_relay_enqueue_failed", "event", event, "order_no", orderNo, "error", err)
	}
}

// Deliver 将事件投递到配置的 Webhook 地址（由 worker 调用）
func (s *WebhookRelayService) Deliver(ctx context.Context, payload queue.ChatWebhookRelayPayload) error {
	if s == nil || strings.TrimSpace(s.cfg.WebhookURL) == "" {
		return nil
	}

	message := map[string]interface{}{
		"event":       payload.Event,
		"order_no":    payload.OrderNo,
		"occurred_at": payload.OccurredAt,
	}
	if len(payload.Body) > 0 {
		var detail map[string]interface{}
		if err := json.Unmarshal(payload.Body, &detail); err == nil {
			message["detail"] = detail
		}
	}
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	timeout := time.Duration(s.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
