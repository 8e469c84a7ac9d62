package emailer

import (
	"errors"

	"github.com/labstack/gommon/log"
)

// ErrEmailsDisabled is returned by DisabledMail for every message
var ErrEmailsDisabled = errors.New("no email transport configured")

// DisabledMail is used when neither SMTP nor SendGrid is configured
type DisabledMail struct{}

func NewDisabledMail() *DisabledMail {
	return &DisabledMail{}
}

func (o *DisabledMail) Send(toName string, to string, subject string, content string, attachments []Attachment) error {
	log.Warnf("Email %q to %s not sent: %v", subject, to, ErrEmailsDisabled)
	return ErrEmailsDisabled
}
