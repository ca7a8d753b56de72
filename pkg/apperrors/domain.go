package apperrors

import (
	"net/http"
)

// Factories and predefined errors for the payment domain.

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and
// friends) into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a uniqueness violation into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrDatabase wraps an unexpected persistence failure.
func ErrDatabase(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "storage", "Database operation failed", http.StatusInternalServerError)
}

// ErrPaymentRequired gates an artifact behind payment proof (403).
// 403 rather than 402: the request is understood and refused, and 402
// is still reserved in practice.
func ErrPaymentRequired(message string) *AppError {
	return New(CodePaymentRequired, "payment", message, http.StatusForbidden)
}

// ErrSignatureInvalid rejects a webhook whose body does not match the
// header digest (401). This is the only non-200 the webhook endpoint
// ever returns.
var ErrSignatureInvalid = New(
	CodeSignatureInvalid,
	"webhook",
	"Webhook signature verification failed",
	http.StatusUnauthorized,
)

// ErrAmountMismatch marks a gateway-reported amount that disagrees with
// the amount fixed at initialization. Never surfaced as a 5xx; the
// transaction simply does not complete.
func ErrAmountMismatch(expected, observed float64) *AppError {
	return New(CodeAmountMismatch, "payment", "Gateway amount does not match transaction amount", http.StatusConflict).
		WithDetails(map[string]float64{"expected": expected, "observed": observed})
}

// ErrGateway wraps a failed or timed-out outbound gateway call.
func ErrGateway(err error) *AppError {
	return Wrap(err, CodeGatewayError, "gateway", "Payment gateway request failed", http.StatusBadGateway)
}

// ErrRateLimited builds a 429 carrying the retry-after hint.
func ErrRateLimited(retryAfterSeconds int) *AppError {
	return New(CodeRateLimited, "ratelimit", "Too many requests", http.StatusTooManyRequests).
		WithDetails(map[string]int{"retryAfterSeconds": retryAfterSeconds})
}

// ErrInvalidCredentials is returned by admin login on a bad pair.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)
