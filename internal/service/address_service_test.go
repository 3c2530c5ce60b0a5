package service

import (
	"errors"
	"testing"

	"github.com/kedai-next/internal/models"
	"github.com/kedai-next/internal/repository"
)

func validAddressInput(customerID uint) SaveAddressInput {
	return SaveAddressInput{
		CustomerID: customerID,
		Label:      "home",
		Name:       "Aisyah",
		Phone:      "0198765432",
		Line1:      "8 Jalan Tun Razak",
		City:       "Kuala Lumpur",
		Postcode:   "50400",
		State:      "KUL",
	}
}

func TestSaveAddressNormalizes(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))

	address, err := svc.Save(validAddressInput(7))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if address.State != "kul" {
		t.Fatalf("state must be normalized to lower case, got %q", address.State)
	}
	if address.Country != "MY" {
		t.Fatalf("country must default to MY, got %q", address.Country)
	}
}

func TestSaveAddressValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))

	cases := []struct {
		name   string
		mutate func(*SaveAddressInput)
	}{
		{"missing name", func(in *SaveAddressInput) { in.Name = " " }},
		{"missing phone", func(in *SaveAddressInput) { in.Phone = "" }},
		{"missing line1", func(in *SaveAddressInput) { in.Line1 = "" }},
		{"missing city", func(in *SaveAddressInput) { in.City = "" }},
		{"short postcode", func(in *SaveAddressInput) { in.Postcode = "5040" }},
		{"alpha postcode", func(in *SaveAddressInput) { in.Postcode = "5O4OO" }},
		{"unknown state", func(in *SaveAddressInput) { in.State = "sg" }},
	}
	for _, tc := range cases {
		input := validAddressInput(7)
		tc.mutate(&input)
		if _, err := svc.Save(input); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("%s: want ErrInvalidAddress got %v", tc.name, err)
		}
	}

	input := validAddressInput(0)
	if _, err := svc.Save(input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero customer: want ErrInvalidInput got %v", err)
	}
}

func TestSetDefaultAddressExclusive(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))

	first, err := svc.Save(validAddressInput(7))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second := validAddressInput(7)
	second.Label = "office"
	second.Line1 = "Menara ABC, Jalan Sultan Ismail"
	saved, err := svc.Save(second)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := svc.SetDefault(first.ID, 7); err != nil {
		t.Fatalf("set default failed: %v", err)
	}
	if err := svc.SetDefault(saved.ID, 7); err != nil {
		t.Fatalf("set default failed: %v", err)
	}

	var defaults int64
	if err := db.Model(&models.Address{}).Where("customer_id = ? AND is_default = ?", 7, true).Count(&defaults).Error; err != nil {
		t.Fatalf("count defaults failed: %v", err)
	}
	if defaults != 1 {
		t.Fatalf("exactly one default address expected, got %d", defaults)
	}

	var reloaded models.Address
	if err := db.First(&reloaded, saved.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.IsDefault {
		t.Fatalf("latest set_default must win")
	}
}

func TestAddressScopedToCustomer(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))

	address, err := svc.Save(validAddressInput(7))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := svc.Get(address.ID, 8); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("foreign get: want ErrAddressNotFound got %v", err)
	}
	if err := svc.Delete(address.ID, 8); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("foreign delete: want ErrAddressNotFound got %v", err)
	}
	if err := svc.Delete(address.ID, 7); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, err := svc.Get(address.ID, 7); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("deleted address must be gone, got %v", err)
	}
}
