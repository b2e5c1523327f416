package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mailer: recipient is required")

// New 按配置构造 Mailer；未配置 SMTP 时退化为只写日志
func New(cfg config.MailConfig) (Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" || cfg.Username == "" {
		logger.Warn("smtp not configured, emails will only be logged")
		return LogMailer{}, nil
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		// app passwords are often pasted with spaces
		mail.WithPassword(strings.ReplaceAll(cfg.Password, " ", "")),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: build smtp client: %w", err)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{client: client, from: from}, nil
}

// SMTPMailer 通过 SMTP 发送
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer 仅记录日志，用于本地开发
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	logger.Info("email (not sent)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
