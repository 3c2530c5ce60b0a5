package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                       uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo                  string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	CustomerID               uint           `gorm:"index;not null" json:"customer_id"`                            // 客户ID
	Status                   string         `gorm:"index;not null" json:"status"`                                 // 订单状态
	Currency                 string         `gorm:"not null" json:"currency"`                                     // 币种
	SubtotalAmount           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"` // 商品小计
	ShippingAmount           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_amount"` // 运费
	TotalAmount              Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 应付总额
	TrackingNumber           string         `gorm:"type:varchar(100);index" json:"tracking_number"`               // 快递单号（出货后写入）
	CourierName              string         `gorm:"type:varchar(100)" json:"courier_name"`                        // 快递公司名称
	SelectedCourierServiceID string         `gorm:"type:varchar(100)" json:"selected_courier_service_id"`         // 下单时选择的快递服务ID
	AutoStatusUpdate         bool           `gorm:"not null;default:true;index" json:"auto_status_update"`        // 是否允许轮询任务自动更新状态
	ShippedAt                *time.Time     `gorm:"index" json:"shipped_at"`                                      // 首次发货时间
	DeliveredAt              *time.Time     `gorm:"index" json:"delivered_at"`                                    // 首次签收时间
	CancelledAt              *time.Time     `gorm:"index" json:"cancelled_at"`                                    // 取消时间
	Note                     string         `gorm:"type:text" json:"note"`                                        // 备注（状态变化记录）
	ClientIP                 string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                  // 下单客户端IP
	CreatedAt                time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt                time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	// 收货地址快照（下单时固化，地址簿变更不影响历史订单）
	ShipName     string `gorm:"not null" json:"ship_name"`                                 // 收件人姓名
	ShipPhone    string `gorm:"type:varchar(30);not null" json:"ship_phone"`               // 联系电话
	ShipLine1    string `gorm:"not null" json:"ship_line1"`                                // 地址行一
	ShipLine2    string `gorm:"default:''" json:"ship_line2"`                              // 地址行二
	ShipCity     string `gorm:"not null" json:"ship_city"`                                 // 城市
	ShipPostcode string `gorm:"type:varchar(10);not null" json:"ship_postcode"`            // 邮编
	ShipState    string `gorm:"type:varchar(10);not null" json:"ship_state"`               // 州代码
	ShipCountry  string `gorm:"type:varchar(5);not null;default:'MY'" json:"ship_country"` // 国家代码

	// 关联
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`    // 订单项
	Shipment *Shipment   `gorm:"foreignKey:OrderID" json:"shipment,omitempty"` // 运单（出货后一对一）
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
