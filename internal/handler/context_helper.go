package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/middleware"
	"github.com/harmonia-studio/harmonia-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func paginationMeta(page, pageSize, total int) *models.Pagination {
	return &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
}
