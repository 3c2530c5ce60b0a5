package service

import (
	"fmt"
	"strings"

	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

// AddressService 客户地址簿服务
type AddressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService 创建地址簿服务
func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

// SaveAddressInput 保存地址输入
type SaveAddressInput struct {
	ID         uint
	CustomerID uint
	Label      string
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Postcode   string
	State      string
	Country    string
	IsDefault  bool
}

// List 客户地址列表
func (s *AddressService) List(customerID uint) ([]models.Address, error) {
	return s.addressRepo.ListByCustomer(customerID)
}

// Get 地址详情
func (s *AddressService) Get(id, customerID uint) (*models.Address, error) {
	address, err := s.addressRepo.GetByIDAndCustomer(id, customerID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

// Save 新建或更新地址
func (s *AddressService) Save(input SaveAddressInput) (*models.Address, error) {
	if err := validateAddressInput(&input); err != nil {
		return nil, err
	}

	var address *models.Address
	if input.ID != 0 {
		existing, err := s.addressRepo.GetByIDAndCustomer(input.ID, input.CustomerID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrAddressNotFound
		}
		address = existing
	} else {
		address = &models.Address{CustomerID: input.CustomerID}
	}

	address.Label = strings.TrimSpace(input.Label)
	address.Name = strings.TrimSpace(input.Name)
	address.Phone = strings.TrimSpace(input.Phone)
	address.Line1 = strings.TrimSpace(input.Line1)
	address.Line2 = strings.TrimSpace(input.Line2)
	address.City = strings.TrimSpace(input.City)
	address.Postcode = strings.TrimSpace(input.Postcode)
	address.State = normalizeStateCode(input.State)
	address.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	if address.Country == "" {
		address.Country = "MY"
	}

	if address.ID == 0 {
		if err := s.addressRepo.Create(address); err != nil {
			return nil, err
		}
	} else {
		if err := s.addressRepo.Update(address); err != nil {
			return nil, err
		}
	}

	if input.IsDefault {
		if err := s.addressRepo.SetDefault(address.ID, input.CustomerID); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}
	return address, nil
}

// Delete 删除地址
func (s *AddressService) Delete(id, customerID uint) error {
	address, err := s.addressRepo.GetByIDAndCustomer(id, customerID)
	if err != nil {
		return err
	}
	if address == nil {
		return ErrAddressNotFound
	}
	return s.addressRepo.Delete(id, customerID)
}

// SetDefault 设置默认地址
func (s *AddressService) SetDefault(id, customerID uint) error {
	address, err := s.addressRepo.GetByIDAndCustomer(id, customerID)
	if err != nil {
		return err
	}
	if address == nil {
		return ErrAddressNotFound
	}
	return s.addressRepo.SetDefault(id, customerID)
}

func validateAddressInput(input *SaveAddressInput) error {
	if input.CustomerID == 0 {
		return ErrInvalidInput
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Phone) == "" ||
		strings.TrimSpace(input.Line1) == "" || strings.TrimSpace(input.City) == "" {
		return fmt.Errorf("%w: name, phone, line1 and city are required", ErrInvalidAddress)
	}
	if !isValidMalaysianPostcode(input.Postcode) {
		return fmt.Errorf("%w: postcode must be 5 digits", ErrInvalidAddress)
	}
	if !isValidMalaysianState(input.State) {
		return fmt.Errorf("%w: unknown state code %s", ErrInvalidAddress, input.State)
	}
	return nil
}
