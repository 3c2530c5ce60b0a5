package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/provider"
	"github.com/kedai-next/internal/queue"
	"github.com/kedai-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderStatusEmail, c.handleOrderStatusEmail)
	mux.HandleFunc(queue.TaskChatWebhookRelay, c.handleChatWebhookRelay)
}

// handleOrderStatusEmail 订单状态邮件任务
// 收件人解析失败、订单不存在、邮箱为空都按跳过处理，不触发重试。
func (c *Consumer) handleOrderStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_status_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_status_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_status_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_status_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}

	receiverEmail, err := c.OrderRepo.ResolveReceiverEmailByOrderID(order.ID)
	if err != nil {
		logger.Warnw("worker_order_status_email_resolve_receiver_failed", "order_id", order.ID, "error", err)
		return err
	}
	receiverEmail = strings.TrimSpace(receiverEmail)
	if receiverEmail == "" {
		logger.Debugw("worker_order_status_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_status_email_skip_email_service_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}

	input := service.OrderSceneEmailInput{
		Scene:          payload.Scene,
		OrderNo:        order.OrderNo,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		TrackingNumber: order.TrackingNumber,
		CourierName:    order.CourierName,
	}
	if err := c.EmailService.SendOrderSceneEmail(receiverEmail, input); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailServiceDisabled),
			errors.Is(err, service.ErrEmailServiceNotConfigured):
			logger.Debugw("worker_order_status_email_skip_disabled", "order_no", order.OrderNo)
			return nil
		case errors.Is(err, service.ErrEmailRecipientRejected):
			// 收件人被上游拒绝，重试不会有不同结果
			logger.Warnw("worker_order_status_email_recipient_rejected",
				"order_no", order.OrderNo,
				"receiver_email", receiverEmail,
			)
			return nil
		case errors.Is(err, service.ErrInvalidInput):
			logger.Warnw("worker_order_status_email_skip_unknown_scene",
				"order_no", order.OrderNo,
				"scene", payload.Scene,
			)
			return nil
		default:
			logger.Warnw("worker_order_status_email_send_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"receiver_email", receiverEmail,
				"scene", payload.Scene,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// handleChatWebhookRelay 群聊 Webhook 转发任务
// 投递失败返回错误交给队列按 MaxRetry 重试。
func (c *Consumer) handleChatWebhookRelay(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_chat_relay_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ChatWebhookRelayPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_chat_relay_unmarshal_failed", "error", err)
		return err
	}
	if payload.Event == "" {
		logger.Debugw("worker_chat_relay_skip_invalid_payload")
		return nil
	}
	if c.WebhookRelayService == nil {
		logger.Warnw("worker_chat_relay_skip_service_nil", "event", payload.Event)
		return nil
	}
	if err := c.WebhookRelayService.Deliver(ctx, payload); err != nil {
		logger.Warnw("worker_chat_relay_deliver_failed",
			"event", payload.Event,
			"order_no", payload.OrderNo,
			"error", err,
		)
		return err
	}
	return nil
}
