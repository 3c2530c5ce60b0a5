package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/kedai-next/internal/config"
	"github.com/kedai-next/internal/courier/easyparcel"
	"github.com/kedai-next/internal/logger"
	"github.com/kedai-next/internal/repository"
)

// LabelService 面单批量下载服务
// 逐单拉取面单 PDF 并打包为 zip，单个失败不影响其余订单。
type LabelService struct {
	orderRepo      repository.OrderRepository
	settingService *ShippingSettingService
	cfg            config.ShippingConfig
}

// NewLabelService 创建面单批量下载服务
func NewLabelService(orderRepo repository.OrderRepository, settingService *ShippingSettingService, cfg config.ShippingConfig) *LabelService {
	return &LabelService{
		orderRepo:      orderRepo,
		settingService: settingService,
		cfg:            cfg,
	}
}

// DownloadLabelsOutput 批量下载结果
type DownloadLabelsOutput struct {
	Archive  []byte
	Fetched  int
	Failures []string // 未能取得面单的订单及原因
}

// DownloadLabels 按订单ID批量下载面单并打包
// 全部失败时返回 ErrNoLabelsAvailable，部分失败时在 Failures 中列明。
func (s *LabelService) DownloadLabels(ctx context.Context, orderIDs []uint) (*DownloadLabelsOutput, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: order ids are required", ErrInvalidInput)
	}

	_, cfg, err := s.settingService.ResolveConfig()
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.GetByIDs(orderIDs)
	if err != nil {
		logger.Errorw("label_download_order_fetch_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}

	out := &DownloadLabelsOutput{}
	buf := &bytes.Buffer{}
	archive := zip.NewWriter(buf)
	delay := time.Duration(s.cfg.LabelDownloadDelayMS) * time.Millisecond

	for i := range orders {
		order := &orders[i]
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("order %s: %v", order.OrderNo, err))
			break
		}

		if order.Shipment == nil || order.Shipment.LabelURL == "" {
			out.Failures = append(out.Failures, fmt.Sprintf("order %s: no label available", order.OrderNo))
			continue
		}

		content, err := easyparcel.DownloadLabel(ctx, cfg, order.Shipment.LabelURL)
		if err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("order %s: %v", order.OrderNo, err))
			logger.Warnw("label_download_failed",
				"order_no", order.OrderNo,
				"tracking_number", order.TrackingNumber,
				"error", err,
			)
			continue
		}

		entry, err := archive.Create(fmt.Sprintf("%s_%s.pdf", order.OrderNo, order.Shipment.TrackingNumber))
		if err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("order %s: %v", order.OrderNo, err))
			continue
		}
		if _, err := entry.Write(content); err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("order %s: %v", order.OrderNo, err))
			continue
		}
		out.Fetched++
	}

	if err := archive.Close(); err != nil {
		return nil, err
	}
	if out.Fetched == 0 {
		return nil, fmt.Errorf("%w: %d order(s) requested, none had labels", ErrNoLabelsAvailable, len(orderIDs))
	}

	out.Archive = buf.Bytes()
	logger.Infow("labels_downloaded",
		"requested", len(orderIDs),
		"fetched", out.Fetched,
		"failed", len(out.Failures),
	)
	return out, nil
}
