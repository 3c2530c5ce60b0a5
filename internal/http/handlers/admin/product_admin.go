package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminProducts 获取商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	categoryID := c.Query("category_id")
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListAdmin(categoryID, search, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetAdminProduct 获取商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		respondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}

	product, err := h.ProductService.GetAdminByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	response.Success(c, product)
}

// SaveProductRequest 创建/更新商品请求
type SaveProductRequest struct {
	CategoryID  uint     `json:"category_id" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	PriceAmount float64  `json:"price_amount" binding:"required"`
	WeightKG    float64  `json:"weight_kg"`
	Stock       *int     `json:"stock"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
	SortOrder   int      `json:"sort_order"`
}

func (r SaveProductRequest) toServiceInput(adminID uint, adminName, requestID string) service.SaveProductInput {
	return service.SaveProductInput{
		CategoryID:  r.CategoryID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		PriceAmount: decimal.NewFromFloat(r.PriceAmount),
		WeightKG:    decimal.NewFromFloat(r.WeightKG),
		Stock:       r.Stock,
		Images:      r.Images,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
		AdminID:     adminID,
		AdminName:   adminName,
		RequestID:   requestID,
	}
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	product, err := h.ProductService.Create(req.toServiceInput(adminID, getAdminName(c), getRequestID(c)))
	if err != nil {
		respondProductSaveError(c, err, "product create failed")
		return
	}

	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	product, err := h.ProductService.Update(id, req.toServiceInput(adminID, getAdminName(c), getRequestID(c)))
	if err != nil {
		respondProductSaveError(c, err, "product update failed")
		return
	}

	response.Success(c, product)
}

// DeleteProduct 删除商品（软删除）
func (h *Handler) DeleteProduct(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if err := h.ProductService.Delete(id, adminID, getAdminName(c), getRequestID(c)); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "product delete failed", err)
		return
	}

	response.Success(c, nil)
}

func respondProductSaveError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, response.CodeBadRequest, "category not found", nil)
	case errors.Is(err, service.ErrProductSlugExists):
		respondError(c, response.CodeBadRequest, "slug already in use", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
