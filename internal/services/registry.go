package services

// ServiceContainer bundles all services for wiring in internal/app.
type ServiceContainer struct {
	PaymentService PaymentService
	AccessService  AccessService
	AuthService    AuthService
	NotifyService  NotifyService
	ReceiptService ReceiptService
}
