package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kedai-next/internal/courier/easyparcel"
	"github.com/kedai-next/internal/models"

	"github.com/shopspring/decimal"
)

// RateService 运费询价服务（只读，不产生任何副作用）
type RateService struct {
	settingService *ShippingSettingService
}

// NewRateService 创建运费询价服务
func NewRateService(settingService *ShippingSettingService) *RateService {
	return &RateService{settingService: settingService}
}

// CourierOption 供操作员或客户选择的快递服务
type CourierOption struct {
	ServiceID        string  `json:"service_id"`
	CourierName      string  `json:"courier_name"`
	ServiceType      string  `json:"service_type"`
	Price            float64 `json:"price"`
	EstimatedDays    string  `json:"estimated_days"`
	IsCustomerChoice bool    `json:"is_customer_choice"`
}

// GetRates 查询可用快递服务与报价
func (s *RateService) GetRates(ctx context.Context, delivery easyparcel.Address, weightKG float64) ([]CourierOption, error) {
	if weightKG <= 0 {
		return nil, ErrInvalidWeight
	}
	if !delivery.Complete() {
		return nil, fmt.Errorf("%w: delivery address incomplete", ErrInvalidAddress)
	}

	setting, cfg, err := s.settingService.ResolveConfig()
	if err != nil {
		return nil, err
	}

	rates, err := easyparcel.GetRates(ctx, cfg, easyparcel.RateRequest{
		Pickup:   PickupAddress(setting),
		Delivery: delivery,
		WeightKG: weightKG,
	})
	if err != nil {
		if errors.Is(err, easyparcel.ErrInvalidAddress) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	options := make([]CourierOption, 0, len(rates))
	for _, rate := range rates {
		options = append(options, CourierOption{
			ServiceID:     rate.ServiceID,
			CourierName:   rate.CourierName,
			ServiceType:   rate.ServiceType,
			Price:         rate.Price.Float(),
			EstimatedDays: rate.EstimatedDays,
		})
	}
	return options, nil
}

// GetShippingOptionsForOrder 按订单收货地址与重量询价
// 与客户下单时选中的服务一致的选项会标记 is_customer_choice。
func (s *RateService) GetShippingOptionsForOrder(ctx context.Context, order *models.Order) ([]CourierOption, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}

	options, err := s.GetRates(ctx, OrderDeliveryAddress(order), OrderWeightKG(order))
	if err != nil {
		return nil, err
	}
	if order.SelectedCourierServiceID != "" {
		for i := range options {
			if options[i].ServiceID == order.SelectedCourierServiceID {
				options[i].IsCustomerChoice = true
			}
		}
	}
	return options, nil
}

// OrderDeliveryAddress 从订单地址快照构建聚合平台收货地址
func OrderDeliveryAddress(order *models.Order) easyparcel.Address {
	if order == nil {
		return easyparcel.Address{}
	}
	return easyparcel.Address{
		Name:     order.ShipName,
		Contact:  order.ShipPhone,
		Line1:    order.ShipLine1,
		Line2:    order.ShipLine2,
		City:     order.ShipCity,
		Postcode: order.ShipPostcode,
		State:    order.ShipState,
		Country:  order.ShipCountry,
	}
}

// CustomerDeliveryAddress 从客户地址簿记录构建聚合平台收货地址
func CustomerDeliveryAddress(address *models.Address) easyparcel.Address {
	if address == nil {
		return easyparcel.Address{}
	}
	return easyparcel.Address{
		Name:     address.Name,
		Contact:  address.Phone,
		Line1:    address.Line1,
		Line2:    address.Line2,
		City:     address.City,
		Postcode: address.Postcode,
		State:    address.State,
		Country:  address.Country,
	}
}

// OrderWeightKG 按订单项快照汇总计费重量
func OrderWeightKG(order *models.Order) float64 {
	if order == nil {
		return 0
	}
	total := decimal.Zero
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			continue
		}
		total = total.Add(item.WeightKG.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	weight, _ := total.Float64()
	return weight
}
