package testutil

import (
	"context"
	"sync"

	"github.com/qs3c/fit_go_server/internal/pkg/email"
)

// Mailbox 记录所有发出的邮件，Err 非空时发送失败
type Mailbox struct {
	mu   sync.Mutex
	sent []*email.Message
	Err  error
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Send(_ context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Messages 返回已发送邮件的快照
func (m *Mailbox) Messages() []*email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*email.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last 最后一封发给 to 的邮件
func (m *Mailbox) Last(to string) *email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i]
		}
	}
	return nil
}

// Service 基于该 mailbox 的邮件服务
func (m *Mailbox) Service() *email.Service {
	return email.NewService(m)
}
