package email

import (
	"context"
	"errors"
)

// Branding son los datos de sitio que personalizan los correos salientes.
// Vienen del cache de settings, no de variables de entorno.
type Branding struct {
	SiteName       string
	CompanyAddress string
	CompanyHotline string
}

// Sender define la interfaz para envio de correos transaccionales.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string, branding Branding) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, branding Branding) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationEmail(_ context.Context, _, _, _ string, _ Branding) error {
	return s.err()
}

func (s *disabledSender) SendPasswordResetEmail(_ context.Context, _, _, _ string, _ Branding) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
