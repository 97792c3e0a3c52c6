// Package managers handles the sending of emails for password resets and contact confirmation using the
// Mailgun service and the Hermes package for email formatting.
package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/matcornic/hermes/v2"
	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/metrics"
)

// MailKind identifies the template of a mail.
type MailKind string

const (
	MailKindPasswordReset       MailKind = "password-reset"
	MailKindContactConfirmation MailKind = "contact-confirmation"
)

// MailJob is everything needed to render and send one mail. It is also the queued message payload.
type MailJob struct {
	Kind  MailKind `json:"kind"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Link  string   `json:"link"`
}

// MailMgr is an interface that outlines the contract for email management.
type MailMgr interface {
	SendPasswordResetMail(ctx context.Context, email, name, link string) error
	SendContactConfirmationMail(ctx context.Context, email, name, link string) error
}

// MailConfig carries the transport settings of MailManager.
type MailConfig struct {
	Environment string
	Domain      string
	APIKey      string
	From        string
	ProductLink string
}

// MailManager is a concrete implementation of the MailMgr interface.
// It uses the Mailgun service for sending emails and the Hermes package for formatting emails.
type MailManager struct {
	Hermes      *hermes.Hermes
	Mailgun     *mailgun.MailgunImpl
	from        string
	environment string
	metrics     *metrics.Metrics
}

// SendPasswordResetMail sends the link that signs the account holder in for a mandatory password change.
func (mm *MailManager) SendPasswordResetMail(ctx context.Context, email, name, link string) error {
	return mm.Deliver(ctx, MailJob{Kind: MailKindPasswordReset, Email: email, Name: name, Link: link})
}

// SendContactConfirmationMail sends the link that confirms ownership of a contact address.
func (mm *MailManager) SendContactConfirmationMail(ctx context.Context, email, name, link string) error {
	return mm.Deliver(ctx, MailJob{Kind: MailKindContactConfirmation, Email: email, Name: name, Link: link})
}

// Deliver renders job and sends it through Mailgun. Outside production the mail is only logged.
func (mm *MailManager) Deliver(ctx context.Context, job MailJob) error {
	if mm.environment != "production" {
		log.Infof("Skipping %s mail to %s in %s mode", job.Kind, job.Email, mm.environment)
		mm.metrics.MailsDispatched.WithLabelValues(string(job.Kind), "skipped").Inc()
		return nil
	}

	subject, mailBody, err := renderMail(job)
	if err != nil {
		return err
	}

	emailBody, err := mm.Hermes.GenerateHTML(mailBody)
	if err != nil {
		return err
	}
	emailText, err := mm.Hermes.GeneratePlainText(mailBody)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	message := mm.Mailgun.NewMessage(mm.from, subject, emailText, job.Email)
	message.SetHtml(emailBody)
	_, _, err = mm.Mailgun.Send(sendCtx, message)
	if err != nil {
		log.Warning("Error sending " + string(job.Kind) + " mail: " + err.Error())
		mm.metrics.MailsDispatched.WithLabelValues(string(job.Kind), "failed").Inc()
		return err
	}
	mm.metrics.MailsDispatched.WithLabelValues(string(job.Kind), "sent").Inc()
	log.Debug("Mail ", job.Kind, " sent to ", job.Email)

	return nil
}

func renderMail(job MailJob) (string, hermes.Email, error) {
	switch job.Kind {
	case MailKindPasswordReset:
		return "Reset your password", hermes.Email{
			Body: hermes.Body{
				Name: job.Name,
				Intros: []string{
					"You have requested to reset the password of your Kazzla account.",
				},
				Actions: []hermes.Action{
					{
						Instructions: "Click the button below within 24 hours to sign in and choose a new password:",
						Button: hermes.Button{
							Color: "#DC4D2F",
							Text:  "Reset your password",
							Link:  job.Link,
						},
					},
				},
				Outros: []string{
					"If you did not request a password reset, no further action is required on your part.",
				},
			},
		}, nil
	case MailKindContactConfirmation:
		return "Confirm your contact address", hermes.Email{
			Body: hermes.Body{
				Name: job.Name,
				Intros: []string{
					"This address was added to a Kazzla account.",
				},
				Actions: []hermes.Action{
					{
						Instructions: "Click the button below within 24 hours to confirm that it belongs to you:",
						Button: hermes.Button{
							Text: "Confirm address",
							Link: job.Link,
						},
					},
				},
				Outros: []string{
					"If you did not add this address, you can safely ignore this mail.",
				},
			},
		}, nil
	default:
		return "", hermes.Email{}, fmt.Errorf("unknown mail kind %q", job.Kind)
	}
}

// NewMailManager initializes a new MailManager instance with configured Mailgun and Hermes settings.
// Mails are only sent when cfg.Environment is "production".
func NewMailManager(cfg MailConfig, m *metrics.Metrics) *MailManager {
	log.Info("Initializing mail manager")

	if cfg.Environment != "production" {
		log.Println("Running in development mode, email will not be sent to users")
	}

	mailgunInstance := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	mailgunInstance.SetAPIBase(mailgun.APIBaseEU)

	mm := &MailManager{
		Hermes: &hermes.Hermes{
			Theme:         new(hermes.Default),
			TextDirection: hermes.TDLeftToRight,
			Product: hermes.Product{
				Name:        "Kazzla",
				Link:        cfg.ProductLink,
				Copyright:   "© Kazzla",
				TroubleText: "If you’re having trouble with the button '{ACTION}', copy and paste the URL below into your web browser.",
			},
		},
		Mailgun:     mailgunInstance,
		from:        cfg.From,
		environment: cfg.Environment,
		metrics:     m,
	}
	log.Info("Initialized mail manager")
	return mm
}
