package constants

// 订单状态常量
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusReadyToShip    = "ready_to_ship"
	OrderStatusInTransit      = "in_transit"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// 订单状态推进序（cancelled 为吸收态，不参与排序）
var orderStatusRank = map[string]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusProcessing:     2,
	OrderStatusReadyToShip:    3,
	OrderStatusInTransit:      4,
	OrderStatusOutForDelivery: 5,
	OrderStatusDelivered:      6,
}

// OrderStatusRank 返回订单状态在生命周期中的序号，未知状态返回 -1。
func OrderStatusRank(status string) int {
	if rank, ok := orderStatusRank[status]; ok {
		return rank
	}
	return -1
}

// IsForwardOrderTransition 判断状态变更是否沿生命周期向前推进。
// 已取消或已送达的订单不再变更；cancelled 是吸收态，任何在途状态
// 都可以进入，但进入后不再离开。回退与原地踏步均不算前进。
func IsForwardOrderTransition(from, to string) bool {
	if from == OrderStatusCancelled || from == OrderStatusDelivered {
		return false
	}
	if to == OrderStatusCancelled {
		return OrderStatusRank(from) >= 0
	}
	fromRank := OrderStatusRank(from)
	toRank := OrderStatusRank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank > fromRank
}

// 客户账号状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusDisabled = "disabled"
)

// 运单状态常量（与订单物流阶段共用词表）
const (
	ShipmentStatusReadyToShip    = OrderStatusReadyToShip
	ShipmentStatusInTransit      = OrderStatusInTransit
	ShipmentStatusOutForDelivery = OrderStatusOutForDelivery
	ShipmentStatusDelivered      = OrderStatusDelivered
	ShipmentStatusCancelled      = OrderStatusCancelled
)

// 物流轨迹事件来源常量
const (
	TrackingEventSourceAggregator = "easyparcel"
	TrackingEventSourceManual     = "manual"
)

// 快递选择策略常量
const (
	CourierStrategyCheapest       = "cheapest"
	CourierStrategyCustomerChoice = "customer_choice"
	CourierStrategyManual         = "manual"
)

// 快递聚合平台环境常量
const (
	CourierEnvSandbox    = "sandbox"
	CourierEnvProduction = "production"
)

// 订单批量操作常量
const (
	BulkActionMarkProcessing = "mark_processing"
	BulkActionMarkShipped    = "mark_shipped"
	BulkActionCancelOrders   = "cancel_orders"
)

// 审计操作者类型常量
const (
	AuditActorAdmin  = "admin"
	AuditActorSystem = "system"
)

// 审计动作常量
const (
	AuditActionShippingSettingSave   = "shipping_setting.save"
	AuditActionShippingSettingDelete = "shipping_setting.delete"
	AuditActionOrderFulfill          = "order.fulfill"
	AuditActionOrderBulkUpdate       = "order.bulk_update"
	AuditActionTrackingSyncRun       = "tracking_sync.run"
	AuditActionTrackingEventManual   = "tracking_event.manual_add"
	AuditActionProductSave           = "product.save"
	AuditActionProductDelete         = "product.delete"
	AuditActionCategorySave          = "category.save"
	AuditActionCategoryDelete        = "category.delete"
)

// 设置键常量
const (
	SettingKeySiteConfig = "site_config"
	SettingKeyChatRelay  = "chat_relay"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskOrderStatusEmail = "order:status_email"
	TaskChatWebhookRelay = "chat:webhook_relay"
)

// 客户邮件场景常量
// 运输途中的轮询状态变化不发送客户邮件，仅下列场景由各自路径显式入队。
const (
	EmailSceneOrderCreated = "order_created"
	EmailSceneReadyToShip  = "ready_to_ship"
)

// 默认币种
const DefaultCurrency = "MYR"

// 马来西亚州代码（快递聚合平台使用的两位代码）
var MalaysiaStateCodes = map[string]string{
	"jhr": "Johor",
	"kdh": "Kedah",
	"ktn": "Kelantan",
	"kul": "Kuala Lumpur",
	"lbn": "Labuan",
	"mlk": "Melaka",
	"nsn": "Negeri Sembilan",
	"phg": "Pahang",
	"prk": "Perak",
	"pls": "Perlis",
	"png": "Pulau Pinang",
	"pjy": "Putrajaya",
	"sbh": "Sabah",
	"swk": "Sarawak",
	"sgr": "Selangor",
	"trg": "Terengganu",
}
