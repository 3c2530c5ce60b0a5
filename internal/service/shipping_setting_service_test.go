package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/models"
)

func validSettingInput() SaveShippingSettingInput {
	return SaveShippingSettingInput{
		APIKey:                "EP-test-key",
		Environment:           constants.CourierEnvSandbox,
		CourierStrategy:       constants.CourierStrategyCustomerChoice,
		AutoUpdateOrderStatus: true,
		PickupName:            "Kedai Warehouse",
		PickupPhone:           "0123456789",
		PickupLine1:           "12 Jalan Ampang",
		PickupCity:            "Kuala Lumpur",
		PickupPostcode:        "50450",
		PickupState:           "KUL",
		AdminID:               1,
		AdminName:             "ops",
	}
}

func TestSaveShippingSettingValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSettingService(db, "")

	cases := []struct {
		name    string
		mutate  func(*SaveShippingSettingInput)
		wantErr error
	}{
		{"missing api key", func(in *SaveShippingSettingInput) { in.APIKey = " " }, ErrInvalidInput},
		{"bad environment", func(in *SaveShippingSettingInput) { in.Environment = "staging" }, ErrInvalidInput},
		{"bad strategy", func(in *SaveShippingSettingInput) { in.CourierStrategy = "random" }, ErrInvalidInput},
		{"missing pickup phone", func(in *SaveShippingSettingInput) { in.PickupPhone = "" }, ErrInvalidAddress},
		{"bad postcode", func(in *SaveShippingSettingInput) { in.PickupPostcode = "504" }, ErrInvalidAddress},
		{"bad state", func(in *SaveShippingSettingInput) { in.PickupState = "XX" }, ErrInvalidAddress},
	}
	for _, tc := range cases {
		input := validSettingInput()
		input.SkipConnectivityCheck = true
		tc.mutate(&input)
		if _, err := svc.Save(context.Background(), input); !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: want %v got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestSaveShippingSettingSkipConnectivityPersistsAndActivates(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSettingService(db, "")

	input := validSettingInput()
	input.SkipConnectivityCheck = true
	saved, err := svc.Save(context.Background(), input)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !saved.IsActive {
		t.Fatalf("saved setting must be active")
	}
	if saved.PickupState != "kul" {
		t.Fatalf("state must be normalized to lower case, got %q", saved.PickupState)
	}
	if saved.PickupCountry != "MY" {
		t.Fatalf("country must default to MY, got %q", saved.PickupCountry)
	}

	active, err := svc.GetActive()
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if active.ID != saved.ID {
		t.Fatalf("active setting mismatch: %d vs %d", active.ID, saved.ID)
	}
}

func TestSaveShippingSettingConnectivityCheck(t *testing.T) {
	db := setupServiceDB(t)

	var balanceCalled bool
	server := newGatewayServer(t, gatewayHandler{
		"EPCheckCreditBalance": func(w http.ResponseWriter, r *http.Request) {
			balanceCalled = true
			if r.FormValue("api") != "EP-test-key" {
				t.Errorf("unexpected api key %q", r.FormValue("api"))
			}
			writeJSON(w, `{"api_status": "Success", "error_code": "0", "result": [{"credit_balance": "152.30", "currency": "MYR"}]}`)
		},
	})

	svc := newSettingService(db, gatewayBaseURL(server))
	if _, err := svc.Save(context.Background(), validSettingInput()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !balanceCalled {
		t.Fatalf("connectivity check must query credit balance")
	}
}

func TestSaveShippingSettingConnectivityFailure(t *testing.T) {
	db := setupServiceDB(t)

	server := newGatewayServer(t, gatewayHandler{
		"EPCheckCreditBalance": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"api_status": "Failed", "error_code": "401", "error_remark": "Unauthorized user"}`)
		},
	})

	svc := newSettingService(db, gatewayBaseURL(server))
	_, err := svc.Save(context.Background(), validSettingInput())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream got %v", err)
	}

	var count int64
	if err := db.Model(&models.ShippingSetting{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed connectivity check must not persist setting")
	}
}

func TestSaveShippingSettingActivateDeactivatesPrevious(t *testing.T) {
	db := setupServiceDB(t)
	previous := seedShippingSetting(t, db, true)

	svc := newSettingService(db, "")
	input := validSettingInput()
	input.SkipConnectivityCheck = true
	input.Environment = constants.CourierEnvProduction
	saved, err := svc.Save(context.Background(), input)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var reloaded models.ShippingSetting
	if err := db.First(&reloaded, previous.ID).Error; err != nil {
		t.Fatalf("reload previous failed: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("previous setting must be deactivated")
	}

	active, err := svc.GetActive()
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if active.ID != saved.ID || active.Environment != constants.CourierEnvProduction {
		t.Fatalf("unexpected active setting %+v", active)
	}
}

func TestResolveConfigRequiresCompletePickup(t *testing.T) {
	db := setupServiceDB(t)
	setting := seedShippingSetting(t, db, true)
	if err := db.Model(setting).Update("pickup_postcode", "").Error; err != nil {
		t.Fatalf("clear postcode failed: %v", err)
	}

	svc := newSettingService(db, "")
	_, _, err := svc.ResolveConfig()
	if !errors.Is(err, ErrShippingNotConfigured) {
		t.Fatalf("want ErrShippingNotConfigured got %v", err)
	}
}
