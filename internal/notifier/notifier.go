package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/lavify/lavify-backend/internal/subscriptions"
	"github.com/lavify/lavify-backend/pkg/db/models"
	"github.com/lavify/lavify-backend/pkg/mailer"
)

// Notifier renders and sends the subscription lifecycle emails. Copy is
// pt-BR, matching the product's audience.
type Notifier struct {
	sender mailer.Sender
}

// New builds a notifier on top of a mail sender.
func New(sender mailer.Sender) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	return &Notifier{sender: sender}, nil
}

var _ subscriptions.Mailer = (*Notifier)(nil)

func planName(plan *models.SubscriptionPlan) string {
	if plan == nil {
		return "seu plano"
	}
	return plan.Name
}

func formatCents(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}

func (n *Notifier) SubscriptionActivated(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error {
	subject := "Sua assinatura está ativa"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Sua assinatura do plano <strong>%s</strong> está ativa. Bom trabalho!</p>",
		user.Name, planName(plan),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) SubscriptionRenewed(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, breakdown subscriptions.PriceBreakdown) error {
	var lines string
	for _, line := range breakdown.Lines {
		lines += fmt.Sprintf("<li>%s: %s</li>", line.Label, formatCents(line.AmountCents))
	}
	subject := "Assinatura renovada"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Sua assinatura do plano <strong>%s</strong> foi renovada.</p><ul>%s</ul><p>Total: <strong>%s</strong></p>",
		user.Name, planName(plan), lines, formatCents(breakdown.TotalCents),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) PaymentFailed(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, reason string) error {
	subject := "Falha no pagamento da sua assinatura"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Não conseguimos processar o pagamento do plano <strong>%s</strong>.</p><p>Acesse sua conta para tentar novamente.</p>",
		user.Name, planName(plan),
	)
	if reason != "" {
		body += fmt.Sprintf("<p>Motivo informado: %s</p>", reason)
	}
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) SubscriptionCanceled(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error {
	subject := "Assinatura cancelada"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Sua assinatura do plano <strong>%s</strong> foi cancelada. Sentiremos sua falta.</p>",
		user.Name, planName(plan),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) SubscriptionUpgraded(ctx context.Context, user *models.User, oldPlan, newPlan *models.SubscriptionPlan) error {
	subject := "Plano atualizado"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Seu plano mudou de <strong>%s</strong> para <strong>%s</strong>. Os novos recursos já estão liberados.</p>",
		user.Name, planName(oldPlan), planName(newPlan),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) TrialExpired(ctx context.Context, user *models.User, plan *models.SubscriptionPlan) error {
	subject := "Seu período de teste terminou"
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>O período de teste do plano <strong>%s</strong> terminou. Assine para continuar usando todos os recursos.</p>",
		user.Name, planName(plan),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}

func (n *Notifier) TrialEndingSoon(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, daysLeft int) error {
	day := "dias"
	if daysLeft == 1 {
		day = "dia"
	}
	subject := fmt.Sprintf("Seu teste termina em %d %s", daysLeft, day)
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Faltam %d %s para o fim do seu período de teste do plano <strong>%s</strong>. Assine agora e não perca o acesso.</p>",
		user.Name, daysLeft, day, planName(plan),
	)
	return n.sender.Send(ctx, user.Email, subject, body)
}
