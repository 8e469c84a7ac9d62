package emailer

// Attachment is a file sent along with an email
type Attachment struct {
	Name     string
	Data     []byte
	MimeType string
}

// Emailer delivers an HTML email. content is the HTML body.
type Emailer interface {
	Send(toName string, to string, subject string, content string, attachments []Attachment) error
}
