package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/qs3c/fit_go_server/config"
)

// SendgridTransport 通过 SendGrid HTTP API 投递
type SendgridTransport struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendgridTransport(cfg *config.EmailConfig) *SendgridTransport {
	return &SendgridTransport{
		client:   sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

// WithBaseURL 覆盖 API 地址，测试时指向本地服务
func (t *SendgridTransport) WithBaseURL(host string) *SendgridTransport {
	t.client.BaseURL = host + "/v3/mail/send"
	return t
}

func (t *SendgridTransport) Send(ctx context.Context, msg *Message) error {
	from := mail.NewEmail(t.fromName, t.from)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status %d", resp.StatusCode)
	}
	return nil
}
