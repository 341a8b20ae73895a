package mail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yanqian/meeting-summarizer/internal/domain/share"
)

// MemoryMailer keeps messages in an outbox instead of sending them.
type MemoryMailer struct {
	mu     sync.Mutex
	outbox []share.Message
	logger *slog.Logger
}

// NewMemoryMailer constructs an outbox mailer.
func NewMemoryMailer(logger *slog.Logger) *MemoryMailer {
	return &MemoryMailer{logger: logger.With("component", "mail.memory")}
}

// Send implements share.Mailer.
func (m *MemoryMailer) Send(_ context.Context, msg share.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, msg)
	m.logger.Warn("smtp not configured, message kept in memory outbox", "subject", msg.Subject)
	return nil
}

// Outbox returns a copy of the messages accepted so far.
func (m *MemoryMailer) Outbox() []share.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]share.Message(nil), m.outbox...)
}
