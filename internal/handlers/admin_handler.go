package handlers

import (
	"net/http"

	"eligibility_backend/internal/middleware"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/repositories"
	"eligibility_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the audit surface over payment transactions.
// Records are append-only; there is deliberately no delete route.
type AdminHandler struct {
	*BaseHandler
	txRepo repositories.TransactionRepository
}

func NewAdminHandler(base *BaseHandler, txRepo repositories.TransactionRepository) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		txRepo:      txRepo,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.GET("/transactions", h.ListTransactions)
		admin.GET("/transactions/:reference", h.GetTransaction)
	}
}

func (h *AdminHandler) ListTransactions(c *gin.Context) {
	page, pageSize := ParsePagination(c)

	txs, total, err := h.txRepo.FindAll(h.GetDB(c), pageSize, (page-1)*pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"total":        total,
		"page":         page,
		"pageSize":     pageSize,
	})
}

func (h *AdminHandler) GetTransaction(c *gin.Context) {
	reference := c.Param("reference")

	tx, err := h.txRepo.FindByReference(h.GetDB(c), reference)
	if err != nil {
		if err == repositories.ErrTransactionNotFound {
			h.HandleServiceError(c, apperrors.ErrNotFound(err))
			return
		}
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}
