// Package notification delivers booking and payment notices outside the
// request path. Producers enqueue a Message and never see delivery errors.
package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

type Template string

const (
	TemplateBookingCreated       Template = "booking_created"
	TemplateOwnerNewBooking      Template = "owner_new_booking"
	TemplateBookingStatusChanged Template = "booking_status_changed"
	TemplatePaymentCompleted     Template = "payment_completed"
	TemplatePaymentFailed        Template = "payment_failed"
)

// Message is one notice to one recipient.
type Message struct {
	Recipient string         `json:"recipient"`
	Template  Template       `json:"template"`
	Data      map[string]any `json:"data"`
}

type content struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[Template]content{
	TemplateBookingCreated: parse(
		"Booking {{.booking_number}} received",
		"Hi {{.name}},\n\nWe received your booking {{.booking_number}} for {{.room}} from {{.start_date}} to {{.end_date}}.\nTotal: {{.total_price}}. Status: {{.status}}.\n",
	),
	TemplateOwnerNewBooking: parse(
		"New booking {{.booking_number}} for {{.room}}",
		"Hi {{.name}},\n\n{{.guest}} booked {{.room}} from {{.start_date}} to {{.end_date}} for {{.guests}} guest(s).\n",
	),
	TemplateBookingStatusChanged: parse(
		"Booking {{.booking_number}} is now {{.status}}",
		"Hi {{.name}},\n\nYour booking {{.booking_number}} changed from {{.previous_status}} to {{.status}}.{{if .reason}}\nReason: {{.reason}}{{end}}\n",
	),
	TemplatePaymentCompleted: parse(
		"Payment received for booking {{.booking_number}}",
		"Hi {{.name}},\n\nWe received {{.amount}} for booking {{.booking_number}}.\n",
	),
	TemplatePaymentFailed: parse(
		"Payment failed for booking {{.booking_number}}",
		"Hi {{.name}},\n\nThe payment for booking {{.booking_number}} did not go through. You can request a new payment code.\n",
	),
}

func parse(subject, body string) content {
	return content{
		subject: template.Must(template.New("subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New("body").Option("missingkey=zero").Parse(body)),
	}
}

// Render returns the subject and plain-text body for m.
func Render(m Message) (subject, body string, err error) {
	c, ok := templates[m.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", m.Template)
	}

	var sb, bb bytes.Buffer
	if err := c.subject.Execute(&sb, m.Data); err != nil {
		return "", "", fmt.Errorf("render subject %s: %w", m.Template, err)
	}
	if err := c.body.Execute(&bb, m.Data); err != nil {
		return "", "", fmt.Errorf("render body %s: %w", m.Template, err)
	}
	return sb.String(), bb.String(), nil
}
