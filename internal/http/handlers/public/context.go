package public

import (
	handlershared "github.com/kedai-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getCustomerID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "customer_id", "invalid customer identity", "unexpected customer identity type")
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}
