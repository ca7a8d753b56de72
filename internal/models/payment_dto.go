package models

// InitializePaymentRequest is the client-facing initialize payload.
// Amount is in base currency units; the gateway client converts to
// subunits on the wire.
type InitializePaymentRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Name           string  `json:"name" validate:"omitempty,max=120"`
	CourseCategory string  `json:"courseCategory" validate:"omitempty,max=120"`
	ResultID       string  `json:"resultId" validate:"omitempty,max=64"`
	Phone          string  `json:"phone" validate:"omitempty,max=32"`
}

type InitializePaymentResponse struct {
	Success          bool   `json:"success"`
	AccessCode       string `json:"accessCode"`
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
}

type VerifyPaymentResponse struct {
	Success   bool    `json:"success"`
	Status    string  `json:"status"` // "pending", "success", "failed"
	Verified  bool    `json:"verified"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
	Email     string  `json:"email"`
	ResultID  string  `json:"resultId"`
}

// WebhookAck is the unconditional 200 body the gateway receives.
type WebhookAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
