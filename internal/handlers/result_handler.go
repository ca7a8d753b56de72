package handlers

import (
	"net/http"

	"eligibility_backend/internal/middleware"
	"eligibility_backend/internal/ratelimit"
	"eligibility_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	*BaseHandler
	accessService services.AccessService
	limiter       *ratelimit.Limiter
}

func NewResultHandler(base *BaseHandler, accessService services.AccessService, limiter *ratelimit.Limiter) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   base,
		accessService: accessService,
		limiter:       limiter,
	}
}

func (h *ResultHandler) RegisterRoutes(r *gin.RouterGroup) {
	results := r.Group("/results")
	results.Use(middleware.OptionalAuthMiddleware(), middleware.RateLimitMiddleware(h.limiter))
	{
		results.GET("/:resultId", h.GetResult)
	}
}

// GetResult releases the artifact only against durable payment proof
// (or an authenticated admin). Result IDs act as capability tokens;
// the rate limit on this route bounds guessing attempts.
func (h *ResultHandler) GetResult(c *gin.Context) {
	resultID := c.Param("resultId")

	result, err := h.accessService.GetResult(c.Request.Context(), h.GetDB(c), resultID, middleware.IsAdmin(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}
