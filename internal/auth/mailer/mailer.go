// Package mailer delivers one-time codes by email.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Subject is the subject line of every OTP message.
const Subject = "Your OTP for Registration"

// Mailer delivers a one-time code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Message is the rendered content of an OTP email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

var htmlBody = template.Must(template.New("otp").Parse(
	`<p>Your OTP is: <strong>{{.Code}}</strong></p>` +
		`<p>It is valid for {{.Validity}}.</p>` +
		`<p>If you did not request this code you can ignore this email.</p>`,
))

// RenderOTP builds the message for code, stating how long it stays valid.
func RenderOTP(code string, validity time.Duration) (Message, error) {
	v := humanDuration(validity)

	var html strings.Builder
	err := htmlBody.Execute(&html, struct {
		Code     string
		Validity string
	}{code, v})
	if err != nil {
		return Message{}, fmt.Errorf("mailer: render: %w", err)
	}

	return Message{
		Subject: Subject,
		Text:    fmt.Sprintf("Your OTP is: %s. It is valid for %s.", code, v),
		HTML:    html.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0 && d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
