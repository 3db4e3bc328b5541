package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPaymentConfirmation notifies the credit holder about an applied payment
func (s *Sender) SendPaymentConfirmation(to string, creditID int64, amount, balance decimal.Decimal, method string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Credit Payment Confirmation"

	body := fmt.Sprintf(
		"A payment of %s has been applied to your credit #%d.\n"+
			"Payment method: %s\n"+
			"Payment time: %s\n"+
			"Remaining balance: %s\n",
		amount.StringFixed(2), creditID, method,
		time.Now().Format("2006-01-02 15:04:05"), balance.StringFixed(2),
	)
	if balance.IsZero() {
		body += "\nCongratulations, your credit is fully paid off.\n"
	}
	body += "\nBest regards,\nCredit Service"
	e.Text = []byte(body)

	return s.send(e, to)
}

// SendOverdueNotice notifies the credit holder about an overdue installment
func (s *Sender) SendOverdueNotice(to string, creditID int64, installmentNumber int, amount decimal.Decimal, dueDate time.Time, daysOverdue int) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Credit Installment Notification"

	body := fmt.Sprintf(
		"Installment #%d of your credit #%d for %s was due on %s and is now %d days overdue.\n"+
			"Please make the payment as soon as possible.\n"+
			"\nBest regards,\nCredit Service",
		installmentNumber, creditID, amount.StringFixed(2), dueDate.Format("2006-01-02"), daysOverdue,
	)
	e.Text = []byte(body)

	return s.send(e, to)
}

func (s *Sender) send(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
