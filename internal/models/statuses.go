package models

type UserRole string
type TransactionStatus string

const (
	UserRoleAdmin UserRole = "admin"

	// Transaction lifecycle. PENDING is the only non-terminal state;
	// once a terminal state is recorded it is never overwritten.
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}
