package services

import (
	"context"
	"fmt"
	"time"

	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/models"

	"github.com/go-resty/resty/v2"
)

// NotifyService forwards a completed-payment event to the external
// automation endpoint. Strictly best effort: missing configuration,
// timeouts and non-2xx responses are logged and swallowed. Nothing on
// this path may fail the payment flow.
type NotifyService interface {
	ForwardCompletedPayment(ctx context.Context, tx *models.PaymentTransaction) error
}

type notifyService struct {
	http       *resty.Client
	webhookURL string
}

func NewNotifyService(webhookURL string, timeout time.Duration) NotifyService {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &notifyService{
		http:       resty.New().SetTimeout(timeout),
		webhookURL: webhookURL,
	}
}

type completedPaymentPayload struct {
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	GatewayReference string  `json:"gatewayReference"`
	Email            string  `json:"email"`
	ResultID         string  `json:"resultId"`
	Amount           float64 `json:"amount"`
	Reference        string  `json:"reference"`
}

func (s *notifyService) ForwardCompletedPayment(ctx context.Context, tx *models.PaymentTransaction) error {
	if s.webhookURL == "" {
		logger.CtxWarn(ctx, "notification webhook URL not configured, skipping forward",
			"reference", tx.Reference,
		)
		return nil
	}

	payload := completedPaymentPayload{
		Name:             tx.Name,
		Phone:            tx.PhoneNumber,
		GatewayReference: tx.GatewayReference,
		Email:            tx.Email,
		ResultID:         tx.ResultID,
		Amount:           tx.Amount,
		Reference:        tx.Reference,
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.webhookURL)

	if err != nil {
		logger.CtxWithError(ctx, "notification forward failed", err, "reference", tx.Reference)
		return err
	}

	if resp.IsError() {
		logger.CtxWarn(ctx, "notification endpoint returned non-success",
			"reference", tx.Reference,
			"status", resp.Status(),
		)
		return fmt.Errorf("notification endpoint returned %s", resp.Status())
	}

	logger.CtxInfo(ctx, "completed payment forwarded", "reference", tx.Reference)
	return nil
}
