package service

import (
	"regexp"
	"strings"

	"github.com/kedai-next/internal/constants"
)

var postcodePattern = regexp.MustCompile(`^\d{5}$`)

// isValidMalaysianPostcode 校验马来西亚邮编（5 位数字）
func isValidMalaysianPostcode(postcode string) bool {
	return postcodePattern.MatchString(strings.TrimSpace(postcode))
}

// isValidMalaysianState 校验州代码是否在聚合平台词表中
func isValidMalaysianState(state string) bool {
	_, ok := constants.MalaysiaStateCodes[strings.ToLower(strings.TrimSpace(state))]
	return ok
}

// normalizeStateCode 统一州代码写法
func normalizeStateCode(state string) string {
	return strings.ToLower(strings.TrimSpace(state))
}
