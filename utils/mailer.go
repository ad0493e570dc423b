package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"
)

// MailerConfig holds SMTP settings.
type MailerConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type EmailData struct {
	Subject  string
	To       []string
	BCC      []string
	Template string
	Data     map[string]interface{}
	Year     int
}

// Embedded email templates
var emailTemplates = map[string]string{
	"new_event": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.TeamName}}: {{.EventName}}</h2>
    </div>

    <div class="content">
        <p>A new event has been added to your team's calendar.</p>
        <p><strong>When:</strong> {{fmtTime .StartAt}} - {{fmtTime .EndAt}}</p>
        {{if .Location}}<p><strong>Where:</strong> {{.Location}}</p>{{end}}
        {{if .Deadline}}<p><strong>Registration closes:</strong> {{fmtTime .Deadline}}</p>{{end}}
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Register</a>
        </p>
    </div>

    <div class="footer">
        <p>© {{.Year}} Sporty</p>
    </div>
</body>
</html>`,

	"unattended_reminder": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #e67e22; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Have you answered for {{.EventName}}?</h2>
    </div>

    <div class="content">
        <p>{{.TeamName}} is still waiting for your answer.</p>
        <p><strong>When:</strong> {{fmtTime .StartAt}}</p>
        {{if .Deadline}}<p><strong>Registration closes:</strong> {{fmtTime .Deadline}}</p>{{end}}
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Answer now</a>
        </p>
    </div>

    <div class="footer">
        <p>© {{.Year}} Sporty</p>
    </div>
</body>
</html>`,

	"test_notification": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Test notification</h2>
    </div>

    <div class="content">
        <p>This is a test notification from Sporty.</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Notification settings</a>
        </p>
    </div>

    <div class="footer">
        <p>© {{.Year}} Sporty</p>
    </div>
</body>
</html>`,
}

// Mailer renders the embedded templates and delivers them over SMTP.
type Mailer struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
	location  *time.Location
}

func NewMailer(cfg MailerConfig, loc *time.Location) *Mailer {
	if loc == nil {
		loc = time.UTC
	}
	return &Mailer{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		location:  loc,
	}
}

// Render executes the named template with data.
func (m *Mailer) Render(data EmailData) (string, error) {
	tmplContent, ok := emailTemplates[data.Template]
	if !ok {
		return "", fmt.Errorf("template '%s' not found", data.Template)
	}

	tmpl, err := template.New(data.Template).Funcs(template.FuncMap{
		"fmtTime": func(v interface{}) string {
			t, ok := v.(time.Time)
			if !ok {
				return ""
			}
			return t.In(m.location).Format("Mon 02 Jan 2006 15:04")
		},
	}).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("error parsing template: %v", err)
	}

	values := make(map[string]interface{}, len(data.Data)+2)
	for k, v := range data.Data {
		values[k] = v
	}
	values["Subject"] = data.Subject
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	values["Year"] = data.Year

	var body bytes.Buffer
	if err := tmpl.Execute(&body, values); err != nil {
		return "", fmt.Errorf("error executing template: %v", err)
	}
	return body.String(), nil
}

// Send renders and delivers one message.
func (m *Mailer) Send(data EmailData) error {
	body, err := m.Render(data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, m.fromName)
	msg.SetHeader("To", data.To...)
	if len(data.BCC) > 0 {
		msg.SetHeader("Bcc", data.BCC...)
	}
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	return nil
}

// ValidRecipient reports whether email is syntactically deliverable.
func ValidRecipient(email string) bool {
	return checkmail.ValidateFormat(email) == nil
}
