package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page         int
	PageSize     int
	CategoryID   string
	Search       string
	OnlyActive   bool
	WithCategory bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page           int
	PageSize       int
	CustomerID     uint
	Status         string
	OrderNo        string
	TrackingNumber string
	CourierName    string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	WithShipment   bool
}

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuditLogListFilter 查询审计日志列表的过滤条件
type AuditLogListFilter struct {
	Page        int
	PageSize    int
	ActorType   string
	ActorID     uint
	Action      string
	Resource    string
	ResourceID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
