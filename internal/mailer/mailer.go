package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"festival-ticketing/internal/config"
	"festival-ticketing/internal/logger"
)

// ConfirmationData is the template data for the payment confirmation mail.
type ConfirmationData struct {
	BuyerName      string
	OrderNumber    string
	Category       string
	TicketQuantity int
	FinalAmount    float64
	TicketCodes    []string
}

// Mailer sends the buyer confirmation. Fire-and-forget from the engine's
// perspective: failure is logged and audited, never blocks reconciliation.
type Mailer interface {
	Send(toAddress string, data ConfirmationData) error
}

type SMTPMailer struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewSMTPMailer(cfg config.EmailConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) Send(toAddress string, data ConfirmationData) error {
	body := m.render(toAddress, data)

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{toAddress}, []byte(body)); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", data.OrderNumber, err)
	}

	m.log.Info("MAILER", fmt.Sprintf("confirmation sent for order %s", data.OrderNumber))
	return nil
}

func (m *SMTPMailer) render(toAddress string, data ConfirmationData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", toAddress)
	fmt.Fprintf(&b, "Subject: Your festival tickets - order %s\r\n", data.OrderNumber)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", data.BuyerName)
	fmt.Fprintf(&b, "Your payment for order %s has been confirmed.\r\n", data.OrderNumber)
	fmt.Fprintf(&b, "Category: %s\r\nTickets: %d\r\nTotal paid: %.2f\r\n\r\n", data.Category, data.TicketQuantity, data.FinalAmount)
	b.WriteString("Ticket codes:\r\n")
	for _, code := range data.TicketCodes {
		fmt.Fprintf(&b, "  %s\r\n", code)
	}
	b.WriteString("\r\nSee you at the festival!\r\n")
	return b.String()
}
