package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/lysyi3m/rss-nibbler/app/cfg"
)

// ErrDelivery marks a digest the SMTP server did not accept.
var ErrDelivery = errors.New("digest delivery failed")

const fileDateFormat = "20060102"

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// NewSMTPClient builds a client that requires STARTTLS and authenticates with
// PLAIN.
func NewSMTPClient(smtp *cfg.SMTP) (*mail.Client, error) {
	client, err := mail.NewClient(smtp.Host,
		mail.WithPort(smtp.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(smtp.Username),
		mail.WithPassword(smtp.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

type Deliverer struct {
	sender      Sender
	emailDir    string
	emailDirSet bool
	clock       func() time.Time
}

// NewDeliverer writes digests to emailDir when sender is nil. With a sender,
// the file is written only when emailDirSet is true.
func NewDeliverer(sender Sender, emailDir string, emailDirSet bool) *Deliverer {
	return &Deliverer{
		sender:      sender,
		emailDir:    emailDir,
		emailDirSet: emailDirSet,
		clock:       time.Now,
	}
}

func (d *Deliverer) WithClock(clock func() time.Time) *Deliverer {
	d.clock = clock
	return d
}

// FileName is the digest file name for the given day.
func FileName(t time.Time) string {
	return fmt.Sprintf("nibbler_%s.eml", t.Format(fileDateFormat))
}

// Deliver sends or writes msg. An SMTP failure is logged and does not stop the
// file from being written; only file errors are returned.
func (d *Deliverer) Deliver(ctx context.Context, msg *mail.Msg) error {
	if d.sender == nil {
		return d.writeFile(msg)
	}

	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Send email message failed", "error", fmt.Errorf("%w: %w", ErrDelivery, err))
	} else {
		slog.Info("Sent email message")
	}

	if d.emailDirSet {
		return d.writeFile(msg)
	}
	return nil
}

func (d *Deliverer) writeFile(msg *mail.Msg) error {
	if err := os.MkdirAll(d.emailDir, 0o755); err != nil {
		return fmt.Errorf("failed to create email directory: %w", err)
	}

	path := filepath.Join(d.emailDir, FileName(d.clock()))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create email file: %w", err)
	}
	defer file.Close()

	if _, err := msg.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write email file: %w", err)
	}

	slog.Info("Wrote email message", "path", path)
	return nil
}
