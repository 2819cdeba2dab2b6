package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/bidmarket/notifier/configs"
	"github.com/bidmarket/notifier/internal/domain/port/channel"
	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
)

// SMTPSender implements channel.EmailSender using SMTP. One templated
// subject/body is broadcast to the full resolved address list in a single
// provider call, with optional extra cc/bcc recipients.
type SMTPSender struct {
	fromName    string
	fromAddress string
	smtpHost    string
	smtpPort    string
	auth        smtp.Auth

	// sendMail is swappable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds an SMTPSender from config.
func NewSMTPSender(cfg *configs.Config) (*SMTPSender, error) {
	if cfg.EmailHost == "" || cfg.EmailPort == "" || cfg.EmailFromAddress == "" {
		return nil, errors.New("SMTP configuration (host, port, from_address) cannot be empty")
	}
	var auth smtp.Auth
	if cfg.EmailUsername != "" {
		auth = smtp.PlainAuth("", cfg.EmailUsername, cfg.EmailPassword, cfg.EmailHost)
	}

	logger.L().Info("Initializing SMTP email sender",
		zap.String("host", cfg.EmailHost),
		zap.String("port", cfg.EmailPort),
		zap.Bool("authEnabled", cfg.EmailUsername != ""),
	)
	return &SMTPSender{
		fromName:    cfg.EmailFromName,
		fromAddress: cfg.EmailFromAddress,
		smtpHost:    cfg.EmailHost,
		smtpPort:    cfg.EmailPort,
		auth:        auth,
		sendMail:    smtp.SendMail,
	}, nil
}

// Send broadcasts the batch in one SMTP call.
func (s *SMTPSender) Send(ctx context.Context, batch channel.EmailBatch) error {
	if len(batch.To) == 0 {
		return nil
	}

	fromDisplay := s.fromName
	if fromDisplay == "" {
		fromDisplay = "Bidmarket"
	}
	from := fmt.Sprintf("%s <%s>", fromDisplay, s.fromAddress)

	var headers strings.Builder
	fmt.Fprintf(&headers, "From: %s\r\n", from)
	fmt.Fprintf(&headers, "To: %s\r\n", strings.Join(batch.To, ", "))
	if len(batch.CC) > 0 {
		fmt.Fprintf(&headers, "Cc: %s\r\n", strings.Join(batch.CC, ", "))
	}
	fmt.Fprintf(&headers, "Subject: %s\r\n", batch.Subject)
	fmt.Fprintf(&headers, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&headers, "Content-Language: %s\r\n", batch.Locale)
	msg := headers.String() + "\r\n" + batch.Body

	// BCC addresses only appear on the envelope, never in headers.
	envelope := make([]string, 0, len(batch.To)+len(batch.CC)+len(batch.BCC))
	envelope = append(envelope, batch.To...)
	envelope = append(envelope, batch.CC...)
	envelope = append(envelope, batch.BCC...)

	smtpAddr := s.smtpHost + ":" + s.smtpPort
	if err := s.sendMail(smtpAddr, s.auth, s.fromAddress, envelope, []byte(msg)); err != nil {
		logger.L().Error("Error sending email via SMTP",
			zap.Int("recipientCount", len(envelope)),
			zap.String("smtpHost", s.smtpHost),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send email via SMTP to %d recipients: %w", len(envelope), err)
	}
	logger.L().Info("Email broadcast sent via SMTP",
		zap.Int("recipientCount", len(envelope)),
		zap.String("locale", string(batch.Locale)),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}

var _ channel.EmailSender = (*SMTPSender)(nil)
