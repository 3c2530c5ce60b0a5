package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/repository"

	"gorm.io/gorm"
)

func newLabelService(db *gorm.DB) *LabelService {
	return NewLabelService(
		repository.NewOrderRepository(db),
		newSettingService(db, ""),
		config.ShippingConfig{LabelDownloadDelayMS: 0},
	)
}

func TestDownloadLabelsPartialFailure(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)

	labelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake label " + r.URL.Path))
	}))
	t.Cleanup(labelServer.Close)

	order1, shipment1 := seedOrderWithShipment(t, db, "KD20260801000011", constants.OrderStatusReadyToShip, "EP-AWB-11", true)
	order2, shipment2 := seedOrderWithShipment(t, db, "KD20260801000012", constants.OrderStatusReadyToShip, "EP-AWB-12", true)
	// 未出货订单无运单，应计入失败清单
	order3, _ := seedOrderWithShipment(t, db, "KD20260801000013", constants.OrderStatusConfirmed, "", true)

	if err := db.Model(shipment1).Update("label_url", labelServer.URL+"/label/11").Error; err != nil {
		t.Fatalf("set label url failed: %v", err)
	}
	if err := db.Model(shipment2).Update("label_url", labelServer.URL+"/label/12").Error; err != nil {
		t.Fatalf("set label url failed: %v", err)
	}

	svc := newLabelService(db)
	out, err := svc.DownloadLabels(context.Background(), []uint{order1.ID, order2.ID, order3.ID})
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if out.Fetched != 2 {
		t.Fatalf("want 2 fetched got %d", out.Fetched)
	}
	if len(out.Failures) != 1 || !strings.Contains(out.Failures[0], order3.OrderNo) {
		t.Fatalf("failure must name the order without label, got %v", out.Failures)
	}

	reader, err := zip.NewReader(bytes.NewReader(out.Archive), int64(len(out.Archive)))
	if err != nil {
		t.Fatalf("open archive failed: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("want 2 archive entries got %d", len(reader.File))
	}
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["KD20260801000011_EP-AWB-11.pdf"] || !names["KD20260801000012_EP-AWB-12.pdf"] {
		t.Fatalf("unexpected entry names %v", names)
	}
}

func TestDownloadLabelsAllMissing(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)
	order, _ := seedOrderWithShipment(t, db, "KD20260801000014", constants.OrderStatusConfirmed, "", true)

	svc := newLabelService(db)
	_, err := svc.DownloadLabels(context.Background(), []uint{order.ID})
	if !errors.Is(err, ErrNoLabelsAvailable) {
		t.Fatalf("want ErrNoLabelsAvailable got %v", err)
	}
}

func TestDownloadLabelsRequiresConfiguration(t *testing.T) {
	db := setupServiceDB(t)

	svc := newLabelService(db)
	_, err := svc.DownloadLabels(context.Background(), []uint{1})
	if !errors.Is(err, ErrShippingNotConfigured) {
		t.Fatalf("want ErrShippingNotConfigured got %v", err)
	}
}

func TestDownloadLabelsRejectsEmptyInput(t *testing.T) {
	db := setupServiceDB(t)
	seedShippingSetting(t, db, true)

	svc := newLabelService(db)
	_, err := svc.DownloadLabels(context.Background(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput got %v", err)
	}
}
