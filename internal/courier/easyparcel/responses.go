package easyparcel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString 兼容字符串与数字两种写法的字段
// 聚合平台同一字段在不同场景下类型不一致（"0" 与 0 混用）。
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String 返回原始文本
func (f FlexString) String() string {
	return string(f)
}

// Float 按浮点数解析，失败返回 0
func (f FlexString) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	if err != nil {
		return 0
	}
	return v
}

// Int 按整数解析，失败返回 0
func (f FlexString) Int() int {
	v, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return 0
	}
	return v
}

// Envelope 聚合平台响应外层
type Envelope struct {
	APIStatus   string     `json:"api_status"`
	ErrorCode   FlexString `json:"error_code"`
	ErrorRemark string     `json:"error_remark"`
}

// IsSuccess 顶层状态是否成功
func (e Envelope) IsSuccess() bool {
	return strings.EqualFold(strings.TrimSpace(e.APIStatus), "Success") && e.ErrorCode.String() == "0"
}

// Rate 单条快递服务报价
type Rate struct {
	ServiceID     string     `json:"service_id"`
	ServiceName   string     `json:"service_name"`
	CourierName   string     `json:"courier_name"`
	ServiceType   string     `json:"service_type"`
	Price         FlexString `json:"price"`
	EstimatedDays string     `json:"delivery"`
}

// rateResult 报价接口 result 条目
type rateResult struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
	Rates   []Rate `json:"rates"`
}

// RateResponse 报价接口完整响应
type RateResponse struct {
	Envelope
	Result []rateResult `json:"result"`
}

// SubmitResult 提交运单接口 result 条目
type SubmitResult struct {
	Status      string     `json:"status"`
	Remarks     string     `json:"remarks"`
	OrderNumber string     `json:"order_number"`
	ParcelNo    string     `json:"parcel_number"`
	Price       FlexString `json:"price"`
}

// SubmitResponse 提交运单接口完整响应
type SubmitResponse struct {
	Envelope
	Result []SubmitResult `json:"result"`
}

// Parcel 包裹描述（支付成功后返回）
type Parcel struct {
	ParcelNo    string `json:"parcelno"`
	AWB         string `json:"awb"`
	AWBLink     string `json:"awb_id_link"`
	TrackingURL string `json:"tracking_url"`
}

// TrackingNumber 包裹追踪号，个别场景缺 awb 字段时退回 parcelno。
func (p Parcel) TrackingNumber() string {
	if awb := strings.TrimSpace(p.AWB); awb != "" {
		return awb
	}
	return strings.TrimSpace(p.ParcelNo)
}

// PayResult 支付接口 result 条目
type PayResult struct {
	OrderNo    string   `json:"orderno"`
	Status     string   `json:"status"`
	Remarks    string   `json:"remarks"`
	MessageNow string   `json:"messagenow"`
	Parcels    []Parcel `json:"parcel"`
}

// payResultAlias 防止 UnmarshalJSON 自递归
type payResultAlias PayResult

// UnmarshalJSON 兼容 parcel 字段为单对象或数组两种形态
func (r *PayResult) UnmarshalJSON(data []byte) error {
	var direct payResultAlias
	if err := json.Unmarshal(data, &direct); err == nil {
		*r = PayResult(direct)
		return nil
	}

	var single struct {
		OrderNo    string `json:"orderno"`
		Status     string `json:"status"`
		Remarks    string `json:"remarks"`
		MessageNow string `json:"messagenow"`
		Parcel     Parcel `json:"parcel"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	r.OrderNo = single.OrderNo
	r.Status = single.Status
	r.Remarks = single.Remarks
	r.MessageNow = single.MessageNow
	if single.Parcel != (Parcel{}) {
		r.Parcels = []Parcel{single.Parcel}
	}
	return nil
}

// PayResponse 支付接口完整响应
type PayResponse struct {
	Envelope
	Result []PayResult `json:"result"`
}

// payResponseAlias 防止 UnmarshalJSON 自递归
type payResponseAlias PayResponse

// UnmarshalJSON 兼容 result 字段为单对象或数组两种形态
func (r *PayResponse) UnmarshalJSON(data []byte) error {
	var direct payResponseAlias
	if err := json.Unmarshal(data, &direct); err == nil {
		*r = PayResponse(direct)
		return nil
	}

	var single struct {
		Envelope
		Result PayResult `json:"result"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	r.Envelope = single.Envelope
	r.Result = []PayResult{single.Result}
	return nil
}

// TrackingEvent 轨迹事件
type TrackingEvent struct {
	EventCode   string `json:"event_code"`
	EventName   string `json:"event_name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	EventTime   string `json:"event_date"` // 格式 2006-01-02 15:04:05
}

// trackingResult 轨迹接口 result 条目
type trackingResult struct {
	Status            string          `json:"status"`
	Remarks           string          `json:"remarks"`
	AWB               string          `json:"awb"`
	LatestStatus      string          `json:"latest_status"`
	LatestDescription string          `json:"latest_description"`
	Events            []TrackingEvent `json:"tracking"`
}

// TrackingResponse 轨迹接口完整响应
type TrackingResponse struct {
	Envelope
	Result []trackingResult `json:"result"`
}

// balanceResult 余额接口 result 条目
type balanceResult struct {
	CreditBalance FlexString `json:"credit_balance"`
	Currency      string     `json:"currency"`
}

// BalanceResponse 余额接口完整响应
type BalanceResponse struct {
	Envelope
	Result []balanceResult `json:"result"`
}
