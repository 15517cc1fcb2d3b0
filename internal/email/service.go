// Package email sends transactional mail over SMTP.
package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/config"
)

type Service struct {
	host string
	port string
	from string
}

func NewService(cfg config.SMTPConfig) *Service {
	return &Service{host: cfg.Host, port: cfg.Port, from: cfg.From}
}

// SendOrderConfirmation mails the customer a receipt for a confirmed order.
func (s *Service) SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []LineItem) error {
	subject := fmt.Sprintf("Order confirmed: %s", orderNumber)
	body := BuildOrderConfirmationBody(orderNumber, total, items)
	return s.send(to, subject, body)
}

// SendRefundReceipt mails the customer a receipt for a refund.
func (s *Service) SendRefundReceipt(to, orderNumber string, amount decimal.Decimal, full bool, reason string) error {
	subject := fmt.Sprintf("Refund issued for order %s", orderNumber)
	body := BuildRefundReceiptBody(orderNumber, amount, full, reason)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
