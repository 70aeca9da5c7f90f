package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogicum/internal/observability"

	"github.com/google/uuid"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers outgoing email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// FileMailer writes every message to its own file in dir instead of
// sending it.
type FileMailer struct {
	dir  string
	from string
	now  func() time.Time
}

func NewFileMailer(dir, defaultFrom string) *FileMailer {
	return &FileMailer{dir: dir, from: defaultFrom, now: time.Now}
}

func (m *FileMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if msg.From == "" {
		msg.From = m.from
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("create mail dir: %w", err)
	}
	now := m.now().UTC()
	id := uuid.NewString()
	name := fmt.Sprintf("%s-%s.log", now.Format("20060102-150405"), id[:8])
	if err := os.WriteFile(filepath.Join(m.dir, name), renderMessage(msg, now, id), 0o600); err != nil {
		return fmt.Errorf("write mail: %w", err)
	}
	return nil
}

func renderMessage(msg Message, date time.Time, id string) []byte {
	var b bytes.Buffer
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\n")
	b.WriteString("MIME-Version: 1.0\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\n")
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Date: %s\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@blogicum>\n\n", id)
	b.WriteString(msg.Body)
	if !strings.HasSuffix(msg.Body, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("-", 79))
	b.WriteByte('\n')
	return b.Bytes()
}

// LogMailer only logs the envelope of each message.
type LogMailer struct {
	from string
}

func NewLogMailer(defaultFrom string) *LogMailer {
	return &LogMailer{from: defaultFrom}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.from
	}
	observability.L().InfoContext(ctx, "mail sent",
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
