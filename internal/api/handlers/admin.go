package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/ratelimit"
)

// RateLimitResetRequest identifies one limiter entry to evict
type RateLimitResetRequest struct {
	Tier       string `json:"tier" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
}

// RateLimitClearRequest identifies a limiter tier to wipe
type RateLimitClearRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// HandleRateLimitReset handles POST /v1/admin/ratelimit/reset
func HandleRateLimitReset(limiters *ratelimit.Set, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RateLimitResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tier and identifier are required"})
			return
		}

		limiter := limiters.ByTier(req.Tier)
		if limiter == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rate limit tier"})
			return
		}

		limiter.Reset(req.Identifier)
		logger.Info("Rate limit entry reset",
			zap.String("tier", req.Tier),
			zap.String("identifier", req.Identifier),
		)

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// HandleRateLimitClear handles POST /v1/admin/ratelimit/clear
func HandleRateLimitClear(limiters *ratelimit.Set, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RateLimitClearRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tier is required"})
			return
		}

		limiter := limiters.ByTier(req.Tier)
		if limiter == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rate limit tier"})
			return
		}

		limiter.ClearAll()
		logger.Info("Rate limit tier cleared", zap.String("tier", req.Tier))

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
