package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"eligibility_backend/internal/logger"

	"github.com/go-resty/resty/v2"
)

// Client talks to the payment gateway's REST API. BaseURL is
// overridable so tests can point it at an httptest server.
type Client struct {
	http      *resty.Client
	baseURL   string
	secretKey string
}

type ClientConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		http:      resty.New().SetTimeout(timeout),
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
	}
}

// Initialize creates a charge on the gateway and returns the
// authorization handle the client is redirected with.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeData, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("gateway secret key is not configured")
	}

	var successResp initializeResponse
	var errorResp apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.secretKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&successResp).
		SetError(&errorResp).
		Post(c.baseURL + "/transaction/initialize")

	if err != nil {
		logger.CtxWithError(ctx, "gateway initialize request failed", err, "reference", req.Reference)
		return nil, fmt.Errorf("could not reach payment gateway: %w", err)
	}

	if resp.IsError() {
		logger.CtxError(ctx, "gateway initialize returned error",
			"reference", req.Reference,
			"status", resp.Status(),
			"message", errorResp.Message,
		)
		return nil, fmt.Errorf("gateway initialize error: %s", nonEmpty(errorResp.Message, resp.Status()))
	}

	if !successResp.Status || successResp.Data.AuthorizationURL == "" {
		logger.CtxWarn(ctx, "gateway declined initialization",
			"reference", req.Reference,
			"message", successResp.Message,
		)
		return nil, fmt.Errorf("payment initialization declined: %s", successResp.Message)
	}

	return &successResp.Data, nil
}

// Verify looks up a charge by reference. A reachable gateway that
// reports a still-pending charge is not an error; callers inspect
// ChargeResult.Status.
func (c *Client) Verify(ctx context.Context, reference string) (*ChargeResult, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("gateway secret key is not configured")
	}

	var successResp verifyResponse
	var errorResp apiError

	verifyURL := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.secretKey).
		SetResult(&successResp).
		SetError(&errorResp).
		Get(verifyURL)

	if err != nil {
		logger.CtxWithError(ctx, "gateway verify request failed", err, "reference", reference)
		return nil, fmt.Errorf("could not reach payment gateway: %w", err)
	}

	if resp.IsError() {
		logger.CtxError(ctx, "gateway verify returned error",
			"reference", reference,
			"status", resp.Status(),
			"message", errorResp.Message,
		)
		return nil, fmt.Errorf("gateway verify error: %s", nonEmpty(errorResp.Message, resp.Status()))
	}

	if !successResp.Status {
		return nil, fmt.Errorf("gateway verify declined: %s", successResp.Message)
	}

	return &successResp.Data, nil
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
