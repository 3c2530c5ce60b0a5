package easyparcel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Address 聚合平台地址参数
type Address struct {
	Name     string
	Contact  string
	Line1    string
	Line2    string
	City     string
	Postcode string
	State    string
	Country  string
}

// Complete 判断地址是否满足聚合平台的必填要求
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Postcode) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.Country) != ""
}

// RateRequest 报价查询请求
type RateRequest struct {
	Pickup   Address
	Delivery Address
	WeightKG float64
}

// SubmitRequest 运单提交请求
type SubmitRequest struct {
	ServiceID   string
	WeightKG    float64
	Content     string
	ValueMYR    float64
	Reference   string
	CollectDate string // 格式 2006-01-02，留空由平台排期
	Pickup      Address
	Delivery    Address
}

// SubmitOutcome 运单提交结果
type SubmitOutcome struct {
	OrderNumber string
	ParcelNo    string
	Price       float64
}

// PaymentResult 支付校验通过后的出货信息
type PaymentResult struct {
	OrderNo        string
	ParcelNo       string
	AWB            string
	TrackingNumber string
	LabelURL       string
	TrackingURL    string
}

// TrackingResult 轨迹查询结果
type TrackingResult struct {
	AWB               string
	LatestStatus      string
	LatestDescription string
	Events            []TrackingEvent
}

func bulkKey(field string) string {
	return fmt.Sprintf("bulk[0][%s]", field)
}

func setBulkAddress(params url.Values, prefix string, addr Address) {
	params.Set(bulkKey(prefix+"_name"), addr.Name)
	params.Set(bulkKey(prefix+"_contact"), addr.Contact)
	params.Set(bulkKey(prefix+"_addr1"), addr.Line1)
	if addr.Line2 != "" {
		params.Set(bulkKey(prefix+"_addr2"), addr.Line2)
	}
	params.Set(bulkKey(prefix+"_city"), addr.City)
	params.Set(bulkKey(prefix+"_code"), addr.Postcode)
	params.Set(bulkKey(prefix+"_state"), addr.State)
	params.Set(bulkKey(prefix+"_country"), addr.Country)
}

// GetRates 查询可用快递服务与报价
func GetRates(ctx context.Context, cfg *Config, req RateRequest) ([]Rate, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if req.WeightKG <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", ErrRequestFailed)
	}
	if !req.Pickup.Complete() {
		return nil, fmt.Errorf("%w: pickup address incomplete", ErrInvalidAddress)
	}
	if !req.Delivery.Complete() {
		return nil, fmt.Errorf("%w: delivery address incomplete", ErrInvalidAddress)
	}

	params := url.Values{}
	params.Set(bulkKey("pick_code"), req.Pickup.Postcode)
	params.Set(bulkKey("pick_state"), req.Pickup.State)
	params.Set(bulkKey("pick_country"), req.Pickup.Country)
	params.Set(bulkKey("send_code"), req.Delivery.Postcode)
	params.Set(bulkKey("send_state"), req.Delivery.State)
	params.Set(bulkKey("send_country"), req.Delivery.Country)
	params.Set(bulkKey("weight"), strconv.FormatFloat(req.WeightKG, 'f', 3, 64))

	body, err := postForm(ctx, cfg, actionRateChecking, params)
	if err != nil {
		return nil, err
	}

	var resp RateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: code=%s remark=%s", ErrUpstream, resp.ErrorCode, resp.ErrorRemark)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("%w: empty rate result", ErrUpstream)
	}
	entry := resp.Result[0]
	if !strings.EqualFold(entry.Status, "Success") {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, entry.Remarks)
	}
	return entry.Rates, nil
}

// SubmitOrder 提交运单
func SubmitOrder(ctx context.Context, cfg *Config, req SubmitRequest) (*SubmitOutcome, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		return nil, fmt.Errorf("%w: service_id is required", ErrRequestFailed)
	}
	if req.WeightKG <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", ErrRequestFailed)
	}
	if !req.Pickup.Complete() {
		return nil, fmt.Errorf("%w: pickup address incomplete", ErrInvalidAddress)
	}
	if !req.Delivery.Complete() {
		return nil, fmt.Errorf("%w: delivery address incomplete", ErrInvalidAddress)
	}

	params := url.Values{}
	params.Set(bulkKey("service_id"), req.ServiceID)
	params.Set(bulkKey("weight"), strconv.FormatFloat(req.WeightKG, 'f', 3, 64))
	params.Set(bulkKey("content"), req.Content)
	params.Set(bulkKey("value"), strconv.FormatFloat(req.ValueMYR, 'f', 2, 64))
	if req.Reference != "" {
		params.Set(bulkKey("reference"), req.Reference)
	}
	if req.CollectDate != "" {
		params.Set(bulkKey("collect_date"), req.CollectDate)
	}
	setBulkAddress(params, "pick", req.Pickup)
	setBulkAddress(params, "send", req.Delivery)

	body, err := postForm(ctx, cfg, actionSubmitOrder, params)
	if err != nil {
		return nil, err
	}

	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: code=%s remark=%s", ErrUpstream, resp.ErrorCode, resp.ErrorRemark)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("%w: empty submit result", ErrUpstream)
	}
	entry := resp.Result[0]
	if !strings.EqualFold(entry.Status, "Success") {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, entry.Remarks)
	}
	if strings.TrimSpace(entry.OrderNumber) == "" {
		return nil, fmt.Errorf("%w: submit result missing order_number", ErrResponseInvalid)
	}
	return &SubmitOutcome{
		OrderNumber: entry.OrderNumber,
		ParcelNo:    entry.ParcelNo,
		Price:       entry.Price.Float(),
	}, nil
}

// PayOrder 支付运单费用并返回出货信息
// 响应按固定顺序校验，见 ValidatePaymentResponse。
func PayOrder(ctx context.Context, cfg *Config, aggregatorOrderNo string) (*PaymentResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(aggregatorOrderNo) == "" {
		return nil, fmt.Errorf("%w: order_no is required", ErrRequestFailed)
	}

	params := url.Values{}
	params.Set(bulkKey("order_no"), aggregatorOrderNo)

	body, err := postForm(ctx, cfg, actionPayOrder, params)
	if err != nil {
		return nil, err
	}

	var resp PayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return ValidatePaymentResponse(&resp)
}

// TrackParcel 查询包裹当前状态与轨迹
func TrackParcel(ctx context.Context, cfg *Config, trackingNumber string) (*TrackingResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, fmt.Errorf("%w: tracking number is required", ErrRequestFailed)
	}

	params := url.Values{}
	params.Set(bulkKey("awb_no"), trackingNumber)

	body, err := postForm(ctx, cfg, actionTrackParcel, params)
	if err != nil {
		return nil, err
	}

	var resp TrackingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: code=%s remark=%s", ErrUpstream, resp.ErrorCode, resp.ErrorRemark)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("%w: empty tracking result", ErrUpstream)
	}
	entry := resp.Result[0]
	if !strings.EqualFold(entry.Status, "Success") {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, entry.Remarks)
	}
	return &TrackingResult{
		AWB:               entry.AWB,
		LatestStatus:      entry.LatestStatus,
		LatestDescription: entry.LatestDescription,
		Events:            entry.Events,
	}, nil
}

// CheckBalance 查询账户余额，用于保存设置前的连通性验证
func CheckBalance(ctx context.Context, cfg *Config) (float64, string, error) {
	if err := ValidateConfig(cfg); err != nil {
		return 0, "", err
	}

	body, err := postForm(ctx, cfg, actionCheckBalance, url.Values{})
	if err != nil {
		return 0, "", err
	}

	var resp BalanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.IsSuccess() {
		return 0, "", fmt.Errorf("%w: code=%s remark=%s", ErrUpstream, resp.ErrorCode, resp.ErrorRemark)
	}
	if len(resp.Result) == 0 {
		return 0, "", fmt.Errorf("%w: empty balance result", ErrUpstream)
	}
	entry := resp.Result[0]
	return entry.CreditBalance.Float(), entry.Currency, nil
}
