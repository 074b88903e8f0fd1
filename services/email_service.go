package services

import (
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"tourbook-api/config"
	"tourbook-api/models"
)

// Mailer delivers the account emails.
type Mailer interface {
	SendWelcome(user *models.User, confirmURL string) error
	SendPasswordReset(user *models.User, resetURL string) error
}

type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &EmailService{config: cfg, dialer: dialer}
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}

func (es *EmailService) newMessage(to, subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	return m
}

const emailLayout = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #55c57a; color: white; padding: 20px; border-radius: 10px 10px 0 0; }
        .content { background: #f7f7f7; padding: 30px; border-radius: 0 0 10px 10px; }
        .btn { display: inline-block; background: #55c57a; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        .footer { text-align: center; margin-top: 20px; color: #777; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content">
            <h2>Hi %s,</h2>
            %s
            <p><a class="btn" href="%s">%s</a></p>
            <p>If the button does not work, copy this link into your browser:<br>%s</p>
        </div>
        <div class="footer">
            <p>This is an automated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>`

// SendWelcome asks a new user to confirm their address.
func (es *EmailService) SendWelcome(user *models.User, confirmURL string) error {
	m := es.newMessage(user.Email, fmt.Sprintf("Welcome to %s! Please confirm your email", es.config.FromName))

	body := `<p>Welcome aboard, we're glad to have you.</p>
            <p>Please confirm your email address within 3 days to activate your account.</p>`
	htmlBody := fmt.Sprintf(emailLayout, es.config.FromName, firstName(user.Name), body, confirmURL, "Confirm email", confirmURL)

	textBody := fmt.Sprintf(`
Hi %s,

Welcome aboard, we're glad to have you.
Please confirm your email address within 3 days:

%s
`, firstName(user.Name), confirmURL)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Printf("Welcome email sent to %s", user.Email)
	return nil
}

// SendPasswordReset mails the reset link, valid for 10 minutes.
func (es *EmailService) SendPasswordReset(user *models.User, resetURL string) error {
	m := es.newMessage(user.Email, "Your password reset token (valid for only 10 minutes)")

	body := `<p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to the link below.</p>
            <p>If you didn't forget your password, please ignore this email.</p>`
	htmlBody := fmt.Sprintf(emailLayout, es.config.FromName, firstName(user.Name), body, resetURL, "Reset password", resetURL)

	textBody := fmt.Sprintf(`
Hi %s,

Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:

%s

If you didn't forget your password, please ignore this email.
`, firstName(user.Name), resetURL)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	log.Printf("Password reset email sent to %s", user.Email)
	return nil
}
