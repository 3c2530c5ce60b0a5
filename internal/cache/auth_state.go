package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/kedai-next/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// CustomerAuthState 客户鉴权快照
// 仅用于服务端 Redis 缓存，避免每次请求都回查数据库。
type CustomerAuthState struct {
	CustomerID   uint   `json:"customer_id"`
	Status       string `json:"status"`
	TokenVersion uint64 `json:"token_version"`
	UpdatedAt    int64  `json:"updated_at"`
}

// AdminAuthState 管理员鉴权快照
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"` // Unix 秒，0 表示未设置
	IsSuper            bool   `json:"is_super"`
	UpdatedAt          int64  `json:"updated_at"`
}

func customerAuthStateKey(customerID uint) string {
	return fmt.Sprintf("auth:customer:%d", customerID)
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// BuildCustomerAuthState 从客户模型构建鉴权快照
func BuildCustomerAuthState(customer *models.Customer) *CustomerAuthState {
	if customer == nil {
		return nil
	}
	return &CustomerAuthState{
		CustomerID:   customer.ID,
		Status:       customer.Status,
		TokenVersion: customer.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetCustomerAuthState 获取客户鉴权快照
func GetCustomerAuthState(ctx context.Context, customerID uint) (*CustomerAuthState, bool, error) {
	if customerID == 0 {
		return nil, false, nil
	}
	var state CustomerAuthState
	hit, err := GetJSON(ctx, customerAuthStateKey(customerID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetCustomerAuthState 写入客户鉴权快照
func SetCustomerAuthState(ctx context.Context, state *CustomerAuthState) error {
	if state == nil || state.CustomerID == 0 {
		return nil
	}
	return SetJSON(ctx, customerAuthStateKey(state.CustomerID), state, authStateCacheTTL)
}

// DelCustomerAuthState 删除客户鉴权快照
func DelCustomerAuthState(ctx context.Context, customerID uint) error {
	if customerID == 0 {
		return nil
	}
	return Del(ctx, customerAuthStateKey(customerID))
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写入管理员鉴权快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}
