package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kedai-next/internal/cache"
	"github.com/kedai-next/internal/constants"
	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	publicConfigCacheKey = "public:config"
	publicConfigCacheTTL = 60 * time.Second
)

// GetConfig 获取全局配置
func (h *Handler) GetConfig(c *gin.Context) {
	// 默认配置
	defaults := map[string]interface{}{
		"site_name": "Kedai Next",
		"currency":  constants.DefaultCurrency,
		"contact": map[string]interface{}{
			"whatsapp": "",
			"email":    "",
		},
	}

	var cached map[string]interface{}
	if hit, err := cache.GetJSON(c.Request.Context(), publicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.GetConfig(defaults)
	if err != nil {
		respondError(c, response.CodeInternal, "config fetch failed", err)
		return
	}

	data["captcha_enabled"] = h.CaptchaService != nil && h.CaptchaService.Enabled()

	_ = cache.SetJSON(c.Request.Context(), publicConfigCacheKey, data, publicConfigCacheTTL)
	response.Success(c, data)
}

// GetProducts 获取商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	categoryID := c.Query("category_id")
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListPublic(categoryID, search, page, pageSize)
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

// GetProductBySlug 根据 slug 获取商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.ProductService.GetPublicBySlug(slug)
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

// GetCategories 获取分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "category fetch failed", err)
		return
	}

	response.Success(c, categories)
}
