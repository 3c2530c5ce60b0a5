package admin

import (
	handlershared "github.com/kedai-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "invalid admin identity", "unexpected admin identity type")
}

func getAdminName(c *gin.Context) string {
	return c.GetString("username")
}

func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}
