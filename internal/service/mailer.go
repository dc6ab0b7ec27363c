package service

import (
	"context"
	"fmt"
	"net/http"

	"manhaj_backend/internal/config"
	"manhaj_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer 发送事务邮件
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	ToName      string
	ToEmail     string
	Subject     string
	TextContent string
	HTMLContent string
}

// NewMailer 配置了 SendGrid key 时走 SendGrid，否则只记录日志
func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.SendgridKey == "" {
		return &LogMailer{}
	}
	return &SendgridMailer{
		key:  cfg.SendgridKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

func (m *SendgridMailer) Send(ctx context.Context, msg EmailMessage) error {
	message := sgmail.NewSingleEmail(
		m.from,
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.ToEmail),
		msg.TextContent,
		msg.HTMLContent,
	)

	client := sendgrid.NewSendClient(m.key)
	res, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogMailer 开发环境使用，邮件内容写入日志
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	logger.Log.Info("email not sent (mail disabled)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextContent),
	)
	return nil
}
