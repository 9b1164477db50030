package mailer

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const (
	verificationSubject = "Verify your email address"
	resetSubject        = "Reset your password"
)

var verificationTemplate = template.Must(template.New("verification").Parse(
	`Welcome to the resident portal.

Please confirm your email address by opening the link below:

{{.Link}}

This link expires in {{.Expiry}}. If you did not create an account, you can ignore this message.
`))

var resetTemplate = template.Must(template.New("reset").Parse(
	`We received a request to reset the password for your resident portal account.

Open the link below to choose a new password:

{{.Link}}

This link expires in {{.Expiry}} and can be used once. If you did not request a reset, you can ignore this message.
`))

type messageData struct {
	Link   string
	Expiry string
}

func render(tmpl *template.Template, link string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, messageData{Link: link, Expiry: humanize(ttl)}); err != nil {
		return "", fmt.Errorf("render %s message: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
