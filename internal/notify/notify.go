// Package notify bridges payment events to email notifications, resolving
// recipient addresses through the user directory.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/integrations/userdir"
	"github.com/roda-fin/credit-service/internal/lifecycle"
	"github.com/roda-fin/credit-service/internal/models"
	"github.com/roda-fin/credit-service/internal/utils/email"
)

// Notifier sends payment confirmations to credit holders. Failures are
// logged, never propagated: notification must not affect payment outcomes.
type Notifier struct {
	users  *userdir.Client
	sender *email.Sender
	log    *logrus.Logger
}

// NewNotifier creates a new payment notifier
func NewNotifier(users *userdir.Client, sender *email.Sender, log *logrus.Logger) *Notifier {
	return &Notifier{users: users, sender: sender, log: log}
}

// NotifyPayment emails the credit holder about an applied payment.
func (n *Notifier) NotifyPayment(credit *models.Credit, payment *models.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := n.users.GetUser(ctx, credit.UserID)
	if err != nil {
		n.log.WithError(err).Warnf("Could not resolve user %s for payment notification", credit.UserID)
		return
	}
	if user.Email == "" {
		return
	}

	if err := n.sender.SendPaymentConfirmation(
		user.Email, credit.ID, payment.Amount, credit.RemainingBalance, payment.PaymentMethod,
	); err != nil {
		n.log.WithError(err).Warnf("Could not send payment notification for credit %d", credit.ID)
	}
}

// NotifyOverdue emails the credit holder about an overdue installment.
func (n *Notifier) NotifyOverdue(credit *models.Credit, inst *models.Installment) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := n.users.GetUser(ctx, credit.UserID)
	if err != nil {
		n.log.WithError(err).Warnf("Could not resolve user %s for overdue notice", credit.UserID)
		return
	}
	if user.Email == "" {
		return
	}

	if err := n.sender.SendOverdueNotice(
		user.Email, credit.ID, inst.Number, inst.TotalAmount, inst.DueDate,
		lifecycle.DaysOverdue(inst.DueDate, time.Now()),
	); err != nil {
		n.log.WithError(err).Warnf("Could not send overdue notice for credit %d", credit.ID)
	}
}
