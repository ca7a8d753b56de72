package handlers

import (
	"net/http"

	"eligibility_backend/internal/config"
	"eligibility_backend/internal/gateway"
	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/middleware"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/ratelimit"
	"eligibility_backend/internal/services"
	"eligibility_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	*BaseHandler
	paymentService services.PaymentService
	cfg            *config.Config
	limiter        *ratelimit.Limiter
}

func NewPaymentHandler(base *BaseHandler, paymentService services.PaymentService, cfg *config.Config, limiter *ratelimit.Limiter) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		paymentService: paymentService,
		cfg:            cfg,
		limiter:        limiter,
	}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/initialize", h.Initialize)
		payments.GET("/verify", middleware.RateLimitMiddleware(h.limiter), h.Verify)
		// No auth here: the gateway authenticates via body signature
		payments.POST("/webhook", h.Webhook)
	}
}

func (h *PaymentHandler) Initialize(c *gin.Context) {
	var req models.InitializePaymentRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.InitializePayment(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing required query parameter: reference"))
		return
	}

	resp, err := h.paymentService.VerifyPayment(c.Request.Context(), h.GetDB(c), reference)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook is the push path. The contract with the gateway: 401 on a
// bad signature, 200 on absolutely everything else. Internal failures
// are logged, never surfaced, because any non-200 triggers gateway-side
// retry storms.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	// The signature covers the exact raw bytes; grab them before any
	// JSON parsing touches the body.
	rawBody, err := c.GetRawData()
	if err != nil {
		logger.CtxWithError(ctx, "failed to read webhook body", err)
		c.JSON(http.StatusOK, models.WebhookAck{Status: "ok", Message: "acknowledged"})
		return
	}

	signature := c.GetHeader(gateway.SignatureHeader)
	if !gateway.VerifySignature(h.cfg.Gateway.SecretKey, rawBody, signature) {
		logger.SecurityLog("webhook_signature_invalid",
			"client_ip", c.ClientIP(),
			"has_signature", signature != "",
		)
		apperrors.HandleError(c, apperrors.ErrSignatureInvalid)
		return
	}

	if err := h.paymentService.HandleWebhookEvent(ctx, h.GetDB(c), rawBody); err != nil {
		// Still a 200: the state machine is recoverable through the
		// pull path and the reconciliation worker.
		logger.CtxWithError(ctx, "webhook processing failed, acknowledged anyway", err)
	}

	c.JSON(http.StatusOK, models.WebhookAck{Status: "ok", Message: "acknowledged"})
}
