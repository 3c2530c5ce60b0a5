package easyparcel

import (
	"fmt"
	"strings"
)

// insufficientBalanceKeywords 余额不足的自由文本特征
// 上游在状态字段与自由文本间不一致地传达余额失败，关键词来自线上故障观察，
// 措辞变化时只需调整此列表。
var insufficientBalanceKeywords = []string{
	"insufficient",
	"not enough credit",
}

// looksLikeInsufficientBalance 判断自由文本是否在描述余额不足
func looksLikeInsufficientBalance(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range insufficientBalanceKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// ValidatePaymentResponse 校验支付响应并提取出货信息
//
// 上游响应结构在不同失败场景下互不一致，校验顺序固定：
//  1. 顶层 api_status 为 Success 且 error_code 为 0，否则 PaymentRejected；
//  2. 首条 bulk 结果自身报告 Success，否则 PaymentRejected（带 remarks）；
//  3. 必须存在至少一个包裹描述。部分失败响应顶层仍是 Success，
//     缺包裹是唯一不可绕过的失败信号，零包裹按 PaymentFailed 处理；
//  4. messagenow 自由文本扫描出余额不足关键词时按 InsufficientBalance 处理，
//     即使前三步全部通过；
//  5. 提取首个包裹的 AWB、追踪号与面单链接。
func ValidatePaymentResponse(resp *PayResponse) (*PaymentResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil payment response", ErrResponseInvalid)
	}

	if !resp.IsSuccess() {
		remark := strings.TrimSpace(resp.ErrorRemark)
		if remark == "" {
			remark = fmt.Sprintf("api_status=%s error_code=%s", resp.APIStatus, resp.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, remark)
	}

	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("%w: empty payment result", ErrPaymentRejected)
	}
	entry := resp.Result[0]
	if !strings.EqualFold(strings.TrimSpace(entry.Status), "Success") {
		remark := strings.TrimSpace(entry.Remarks)
		if remark == "" {
			remark = "payment result status " + entry.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, remark)
	}

	if len(entry.Parcels) == 0 {
		return nil, fmt.Errorf("%w: No parcel details returned", ErrPaymentFailed)
	}

	if looksLikeInsufficientBalance(entry.MessageNow) {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientBalance, strings.TrimSpace(entry.MessageNow))
	}

	parcel := entry.Parcels[0]
	trackingNumber := parcel.TrackingNumber()
	if trackingNumber == "" {
		return nil, fmt.Errorf("%w: No parcel details returned", ErrPaymentFailed)
	}

	return &PaymentResult{
		OrderNo:        entry.OrderNo,
		ParcelNo:       parcel.ParcelNo,
		AWB:            parcel.AWB,
		TrackingNumber: trackingNumber,
		LabelURL:       parcel.AWBLink,
		TrackingURL:    parcel.TrackingURL,
	}, nil
}
