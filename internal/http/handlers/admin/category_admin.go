package admin

import (
	"errors"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCategories 获取分类列表 (Admin)
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "category fetch failed", err)
		return
	}

	response.Success(c, categories)
}

// SaveCategoryRequest 创建/更新分类请求
type SaveCategoryRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	category, err := h.CategoryService.Create(service.SaveCategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		AdminID:   adminID,
		AdminName: getAdminName(c),
		RequestID: getRequestID(c),
	})
	if err != nil {
		respondCategorySaveError(c, err, "category create failed")
		return
	}

	response.Success(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	category, err := h.CategoryService.Update(id, service.SaveCategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		AdminID:   adminID,
		AdminName: getAdminName(c),
		RequestID: getRequestID(c),
	})
	if err != nil {
		respondCategorySaveError(c, err, "category update failed")
		return
	}

	response.Success(c, category)
}

// DeleteCategory 删除分类（软删除）
func (h *Handler) DeleteCategory(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if err := h.CategoryService.Delete(id, adminID, getAdminName(c), getRequestID(c)); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, response.CodeBadRequest, "category still has products", nil)
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, response.CodeNotFound, "category not found", nil)
		default:
			respondError(c, response.CodeInternal, "category delete failed", err)
		}
		return
	}

	response.Success(c, nil)
}

func respondCategorySaveError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, response.CodeNotFound, "category not found", nil)
	case errors.Is(err, service.ErrCategorySlugUsed):
		respondError(c, response.CodeBadRequest, "slug already in use", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
