package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport delivers through a plain SMTP relay.
type SMTPTransport struct {
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPTransport authenticates with PLAIN only when username is set.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPTransport{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// Deliver implements Transport. net/smtp has no context support, so ctx is
// only honoured between attempts.
func (t *SMTPTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	return t.sendMail(t.addr, t.auth, from, to, msg)
}

type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESTransport delivers raw messages through Amazon SES.
type SESTransport struct {
	client sesAPI
}

// NewSESTransport loads credentials from the default AWS chain.
func NewSESTransport(ctx context.Context) (*SESTransport, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &SESTransport{client: ses.NewFromConfig(cfg)}, nil
}

// Deliver implements Transport.
func (t *SESTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	_, err := t.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(from),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: msg},
	})
	if err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}
	return nil
}
