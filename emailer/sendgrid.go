package emailer

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridHost = "https://api.sendgrid.com"

type SendgridApiMail struct {
	apiKey   string
	fromName string
	from     string
	host     string
}

func NewSendgridApiMail(apiKey, fromName, from string) *SendgridApiMail {
	return &SendgridApiMail{apiKey: apiKey, fromName: fromName, from: from, host: sendgridHost}
}

// buildMessage assembles the v3 mail body
func (o *SendgridApiMail) buildMessage(toName string, to string, subject string, content string, attachments []Attachment) *mail.SGMailV3 {
	m := mail.NewV3Mail()

	m.SetFrom(mail.NewEmail(o.fromName, o.from))
	m.AddContent(mail.NewContent("text/html", content))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(toName, to))
	personalization.Subject = subject
	m.AddPersonalizations(personalization)

	toAdd := make([]*mail.Attachment, 0, len(attachments))
	for i := range attachments {
		var att mail.Attachment
		att.SetContent(base64.StdEncoding.EncodeToString(attachments[i].Data))
		mimeType := attachments[i].MimeType
		if mimeType == "" {
			mimeType = "text/plain"
		}
		att.SetType(mimeType)
		att.SetFilename(attachments[i].Name)
		att.SetDisposition("attachment")
		toAdd = append(toAdd, &att)
	}
	if len(toAdd) > 0 {
		m.AddAttachment(toAdd...)
	}
	return m
}

func (o *SendgridApiMail) Send(toName string, to string, subject string, content string, attachments []Attachment) error {
	m := o.buildMessage(toName, to, subject, content, attachments)

	request := sendgrid.GetRequest(o.apiKey, "/v3/mail/send", o.host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(m)
	response, err := sendgrid.API(request)
	if err != nil {
		return err
	}
	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
