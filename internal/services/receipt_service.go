package services

import (
	"context"
	"fmt"

	"eligibility_backend/internal/config"
	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/models"

	"gopkg.in/gomail.v2"
)

// ReceiptService emails the payer a receipt after a completed
// transition. Same policy as the notification forwarder: failures are
// logged, never propagated.
type ReceiptService interface {
	SendReceipt(ctx context.Context, tx *models.PaymentTransaction) error
}

type receiptService struct {
	cfg *config.Config
}

func NewReceiptService(cfg *config.Config) ReceiptService {
	return &receiptService{cfg: cfg}
}

func (s *receiptService) SendReceipt(ctx context.Context, tx *models.PaymentTransaction) error {
	if s.cfg.Email.SMTPHost == "" {
		logger.CtxDebug(ctx, "smtp not configured, skipping receipt", "reference", tx.Reference)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Email.FromEmail)
	m.SetHeader("To", tx.Email)
	m.SetHeader("Subject", "Payment received")
	m.SetBody("text/html", s.buildBody(tx))

	d := gomail.NewDialer(
		s.cfg.Email.SMTPHost,
		s.cfg.Email.SMTPPort,
		s.cfg.Email.SMTPUsername,
		s.cfg.Email.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		logger.CtxWithError(ctx, "receipt email failed", err, "reference", tx.Reference)
		return err
	}

	logger.CtxInfo(ctx, "receipt email sent", "reference", tx.Reference)
	return nil
}

func (s *receiptService) buildBody(tx *models.PaymentTransaction) string {
	name := tx.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We received your payment of %.2f (reference <b>%s</b>).</p>
<p>Your eligibility report is now available.</p>`,
		name, tx.Amount, tx.Reference,
	)
}
