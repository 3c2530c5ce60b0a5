package queue

import (
	"encoding/json"

	"github.com/kedai-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderStatusEmail 订单状态邮件通知任务
	TaskOrderStatusEmail = constants.TaskOrderStatusEmail
	// TaskChatWebhookRelay 聊天 Webhook 转发任务
	TaskChatWebhookRelay = constants.TaskChatWebhookRelay
)

// OrderStatusEmailPayload 订单状态邮件任务载荷
// Scene 只允许 order_created 与 ready_to_ship，运输途中的状态变化不产生邮件。
type OrderStatusEmailPayload struct {
	OrderID uint   `json:"order_id"`
	Scene   string `json:"scene"`
}

// ChatWebhookRelayPayload 聊天 Webhook 转发任务载荷
type ChatWebhookRelayPayload struct {
	Event      string          `json:"event"`
	OrderNo    string          `json:"order_no,omitempty"`
	OccurredAt int64           `json:"occurred_at"`
	Body       json.RawMessage `json:"body"`
}

// NewOrderStatusEmailTask 创建订单状态邮件任务
func NewOrderStatusEmailTask(payload OrderStatusEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusEmail, body), nil
}

// NewChatWebhookRelayTask 创建聊天 Webhook 转发任务
func NewChatWebhookRelayTask(payload ChatWebhookRelayPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChatWebhookRelay, body), nil
}
