package gateway

import (
	"encoding/json"
	"fmt"
)

// Charge statuses the gateway reports on verify.
const (
	ChargeStatusSuccess   = "success"
	ChargeStatusFailed    = "failed"
	ChargeStatusAbandoned = "abandoned"
	ChargeStatusPending   = "pending"
)

// EventChargeSuccess is the only webhook event type this service acts
// on; everything else is acknowledged and ignored.
const EventChargeSuccess = "charge.success"

// InitializeRequest is the outbound initialize payload. Amount is in
// the gateway's smallest subunit (kobo-style: base unit * 100).
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    InitializeData `json:"data"`
}

// InitializeData is the authorization handle returned on success.
type InitializeData struct {
	AccessCode       string `json:"access_code"`
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type verifyResponse struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Data    ChargeResult `json:"data"`
}

// ChargeResult is the gateway's view of one charge, as reported by
// either the verify endpoint or a webhook event. Amount is in
// subunits.
type ChargeResult struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// AmountBaseUnits converts the subunit amount to base currency units.
func (c ChargeResult) AmountBaseUnits() float64 {
	return float64(c.Amount) / 100.0
}

// GatewayReference renders the gateway's own transaction identifier.
func (c ChargeResult) GatewayReference() string {
	return fmt.Sprintf("%d", c.ID)
}

// WebhookEvent is the inbound event envelope.
type WebhookEvent struct {
	Event string       `json:"event"`
	Data  ChargeResult `json:"data"`
}

// ParseWebhookEvent decodes a raw, already signature-verified body.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	return &event, nil
}

type apiError struct {
	Message string `json:"message"`
}
