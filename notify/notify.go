// Package notify implements tokenlife's delivery collaborators: a zap-backed
// notifier for development, an SMTP notifier, and an MFA code mailer that
// routes codes through any [tokenlife.Notifier].
package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife"
)

var (
	_ tokenlife.Notifier      = (*LogNotifier)(nil)
	_ tokenlife.Notifier      = (*SMTPNotifier)(nil)
	_ tokenlife.MFACodeSender = (*MFAMailer)(nil)
)

// ErrInvalidHeader is returned when a recipient or subject contains a line
// break.
var ErrInvalidHeader = errors.New("notify: header contains line break")

// LogNotifier writes every message to a zap logger instead of delivering it.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendText(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// SMTPConfig addresses an SMTP relay. Auth is PLAIN when Username is set.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers plain-text mail through an SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("notify: smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail, now: time.Now}, nil
}

func (n *SMTPNotifier) SendText(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return ErrInvalidHeader
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.send(addr, auth, n.cfg.From, []string{to}, n.message(to, subject, body)); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) message(to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + n.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// MFAMailer looks up the principal's email address and sends the one-time
// code through a [tokenlife.Notifier].
type MFAMailer struct {
	users    tokenlife.UserDirectory
	notifier tokenlife.Notifier
}

func NewMFAMailer(users tokenlife.UserDirectory, notifier tokenlife.Notifier) *MFAMailer {
	return &MFAMailer{users: users, notifier: notifier}
}

func (m *MFAMailer) SendMFACode(ctx context.Context, principal tokenlife.Principal, code string) error {
	user, err := m.users.LoadUser(ctx, principal.Subject)
	if err != nil {
		return fmt.Errorf("notify: resolve mfa recipient: %w", err)
	}
	if user.Email == "" {
		return fmt.Errorf("notify: user %q has no email address", principal.Subject)
	}
	body := fmt.Sprintf("Your verification code is %s.\n\nIf you did not try to sign in, change your password.\n", code)
	return m.notifier.SendText(ctx, user.Email, "Your verification code", body)
}
