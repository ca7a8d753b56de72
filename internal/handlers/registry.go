package handlers

// AppHandlers bundles every HTTP handler for route registration.
type AppHandlers struct {
	AuthHandler    *AuthHandler
	PaymentHandler *PaymentHandler
	ResultHandler  *ResultHandler
	AdminHandler   *AdminHandler
}
