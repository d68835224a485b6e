package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/qs3c/fit_go_server/config"
)

// SMTPTransport 通过 SMTP 投递，auth 可以是 PLAIN 或 XOAUTH2
type SMTPTransport struct {
	addr     string
	from     string
	fromName string
	auth     smtp.Auth
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(cfg *config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:     cfg.From,
		fromName: cfg.FromName,
		auth:     smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost),
		send:     smtp.SendMail,
	}
}

// NewXOAuth2Transport Gmail 这类只接受 OAuth2 的 SMTP 服务，用 refresh token 换取 access token
func NewXOAuth2Transport(ctx context.Context, cfg *config.EmailConfig) *SMTPTransport {
	conf := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://mail.google.com/"},
	}
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})

	t := NewSMTPTransport(cfg)
	t.auth = XOAuth2Auth(cfg.Username, source)
	return t
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.send(t.addr, t.auth, t.from, []string{msg.To}, buildMIME(t.from, t.fromName, msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// buildMIME 组装 multipart/alternative 邮件正文
func buildMIME(from, fromName string, msg *Message) []byte {
	const boundary = "fit-app-boundary"

	sender := from
	if fromName != "" {
		sender = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), from)
	}

	var b strings.Builder
	headers := [][2]string{
		{"From", sender},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary)},
	}
	for _, h := range headers {
		b.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n--" + boundary + "--\r\n")

	return []byte(b.String())
}

type xoauth2Auth struct {
	username string
	source   oauth2.TokenSource
}

// XOAuth2Auth 实现 SMTP AUTH XOAUTH2
func XOAuth2Auth(username string, source oauth2.TokenSource) smtp.Auth {
	return &xoauth2Auth{username: username, source: source}
}

func (a *xoauth2Auth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	tok, err := a.source.Token()
	if err != nil {
		return "", nil, fmt.Errorf("failed to refresh oauth token: %w", err)
	}
	resp := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", a.username, tok.AccessToken)
	return "XOAUTH2", []byte(resp), nil
}

// Next 服务端拒绝时会返回一段 JSON 错误说明，回应空行让其结束握手
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
