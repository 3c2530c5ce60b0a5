package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderFetchFailed   = errors.New("order fetch failed")
	ErrOrderUpdateFailed  = errors.New("order update failed")
	ErrOrderCreateFailed  = errors.New("order create failed")
	ErrOrderStatusInvalid = errors.New("order status invalid")
	ErrOrderItemsInvalid  = errors.New("order items invalid")
	ErrStockInsufficient  = errors.New("stock insufficient")
)

// 物流相关错误
var (
	ErrShippingNotConfigured = errors.New("shipping not configured")
	ErrShipmentNotFound      = errors.New("shipment not found")
	ErrShipmentExists        = errors.New("shipment already exists")
	ErrInvalidAddress        = errors.New("address invalid")
	ErrInvalidWeight         = errors.New("weight invalid")
	ErrPaymentRejected       = errors.New("courier payment rejected")
	ErrPaymentFailed         = errors.New("courier payment failed")
	ErrInsufficientBalance   = errors.New("courier balance insufficient")
	ErrUpstream              = errors.New("courier upstream error")
	ErrTrackingSyncDisabled  = errors.New("tracking auto update disabled")
	ErrNoLabelsAvailable     = errors.New("no labels available")
)

// 账号与认证相关错误
var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrCustomerExists     = errors.New("customer already exists")
	ErrCustomerDisabled   = errors.New("customer disabled")
	ErrCredentialsInvalid = errors.New("credentials invalid")
	ErrCaptchaInvalid     = errors.New("captcha invalid")
	ErrCaptchaDisabled    = errors.New("captcha disabled")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrPasswordTooWeak    = errors.New("password too weak")
)

// 商品与分类相关错误
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductSlugExists = errors.New("product slug already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategorySlugUsed  = errors.New("category slug already exists")
	ErrCategoryInUse     = errors.New("category has products")
)

// 地址相关错误
var (
	ErrAddressNotFound = errors.New("address not found")
)

// 邮件相关错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
	ErrInvalidEmail              = errors.New("email invalid")
)

// 通用参数错误
var ErrInvalidInput = errors.New("invalid input")
