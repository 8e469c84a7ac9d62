package emailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/util"
)

//go:embed templates
var templatesFS embed.FS

// ResetPasswordTemplate renders the password recovery email
type ResetPasswordTemplate struct {
	tmpl         *template.Template
	projectName  string
	frontendHost string
	validFor     time.Duration
}

func NewResetPasswordTemplate(projectName, frontendHost string, validFor time.Duration) (*ResetPasswordTemplate, error) {
	content, err := util.StringFromEmbedFile(templatesFS, "templates/reset_password.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("reset_password").Parse(content)
	if err != nil {
		return nil, err
	}
	return &ResetPasswordTemplate{
		tmpl:         tmpl,
		projectName:  projectName,
		frontendHost: strings.TrimRight(frontendHost, "/"),
		validFor:     validFor,
	}, nil
}

// Render builds the email sent to email with a link carrying token
func (o *ResetPasswordTemplate) Render(email string, token string) (model.EmailData, error) {
	data := map[string]interface{}{
		"ProjectName": o.projectName,
		"Username":    email,
		"Email":       email,
		"ValidHours":  int(o.validFor.Hours()),
		"Link":        fmt.Sprintf("%s/reset-password?token=%s", o.frontendHost, url.QueryEscape(token)),
	}

	var buf bytes.Buffer
	if err := o.tmpl.Execute(&buf, data); err != nil {
		return model.EmailData{}, fmt.Errorf("cannot render reset password email: %w", err)
	}
	return model.EmailData{
		Subject:     fmt.Sprintf("%s - Password recovery for user %s", o.projectName, email),
		HTMLContent: buf.String(),
	}, nil
}
