package email

import (
	"context"
	"fmt"
	"html"

	"github.com/qs3c/fit_go_server/config"
)

// Message 待发送的邮件
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport 邮件投递方式
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

type Service struct {
	transport Transport
}

func NewService(transport Transport) *Service {
	return &Service{transport: transport}
}

// NewFromConfig 按 provider 选择投递方式
func NewFromConfig(ctx context.Context, cfg *config.EmailConfig) (*Service, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewService(NewSMTPTransport(cfg)), nil
	case "xoauth2":
		return NewService(NewXOAuth2Transport(ctx, cfg)), nil
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid api key is not configured")
		}
		return NewService(NewSendgridTransport(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

// Notify 发送一封只包含一个操作链接的通知邮件
func (s *Service) Notify(ctx context.Context, to, subject, link string) error {
	return s.transport.Send(ctx, &Message{
		To:      to,
		Subject: subject,
		HTML:    renderLinkHTML(subject, link),
		Text:    fmt.Sprintf("%s\n\nOpen the following link to continue:\n%s\n\nIf you did not request this, you can ignore this email.\n", subject, link),
	})
}

// 邮件主题
const (
	SubjectVerifyEmail   = "Verify your email address"
	SubjectResetPassword = "Reset your password"
)

// SendVerification 发送注册验证邮件
func (s *Service) SendVerification(ctx context.Context, to, link string) error {
	return s.Notify(ctx, to, SubjectVerifyEmail, link)
}

// SendPasswordReset 发送密码重置邮件
func (s *Service) SendPasswordReset(ctx context.Context, to, link string) error {
	return s.Notify(ctx, to, SubjectResetPassword, link)
}

func renderLinkHTML(subject, link string) string {
	title := html.EscapeString(subject)
	href := html.EscapeString(link)
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #16a34a;">%s</h2>
        <p>Hello,</p>
        <p>Click the button below to continue:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #16a34a; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Continue</a>
        </div>
        <p>Or copy this link into your browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">%s</p>
        <p>If you did not request this, you can ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This email was sent automatically, please do not reply.</p>
    </div>
</body>
</html>
`, title, href, href)
}
