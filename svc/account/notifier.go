package account

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/a-h/templ"

	"github.com/pcbuilder/configurator/pkg/email"
	"github.com/pcbuilder/configurator/pkg/email/templates"
)

// Notifier delivers account mail. Implementations should hand messages to a
// queue rather than block on the transport.
type Notifier interface {
	SendVerification(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

const (
	subjectVerification  = "Please verify your email"
	subjectPasswordReset = "Password Reset Request"
)

//go:embed templates/*.html
var templatesFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// MailNotifier renders account mail and passes it to an email.EmailSender,
// normally an *email.QueuedSender.
type MailNotifier struct {
	sender          email.EmailSender
	productName     string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewMailNotifier returns a MailNotifier using the product name and token
// lifetimes from cfg.
func NewMailNotifier(sender email.EmailSender, cfg Config) *MailNotifier {
	return &MailNotifier{
		sender:          sender,
		productName:     cfg.ProductName,
		verificationTTL: cfg.VerificationTTL,
		resetTTL:        cfg.ResetTTL,
	}
}

type mailData struct {
	ProductName string
	// Links are built from configuration and an escaped token, so custom
	// schemes such as pcbuilder:// are allowed through.
	Link      template.URL
	ExpiresIn string
}

// SendVerification sends the email verification link.
func (n *MailNotifier) SendVerification(ctx context.Context, to, link string) error {
	return n.send(ctx, to, subjectVerification, "verify_email.html", "account_verification", link, n.verificationTTL)
}

// SendPasswordReset sends the password reset link.
func (n *MailNotifier) SendPasswordReset(ctx context.Context, to, link string) error {
	return n.send(ctx, to, subjectPasswordReset, "reset_password.html", "password_reset", link, n.resetTTL)
}

func (n *MailNotifier) send(ctx context.Context, to, subject, tpl, tag, link string, ttl time.Duration) error {
	page := mailTemplates.Lookup(tpl)
	if page == nil {
		return fmt.Errorf("email template %q not found", tpl)
	}
	body, err := templates.Render(ctx, templ.FromGoHTML(page, mailData{
		ProductName: n.productName,
		Link:        template.URL(link),
		ExpiresIn:   humanizeTTL(ttl),
	}))
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", tag, err)
	}

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      tag,
	}); err != nil {
		return fmt.Errorf("failed to send %s email: %w", tag, err)
	}
	return nil
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", d/(24*time.Hour))
	case d >= 2*time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d == time.Hour:
		return "1 hour"
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
