package domain

import "context"

// OutboundEmail is one rendered message for one recipient.
type OutboundEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg OutboundEmail) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RosterMessage is a bulk message to the visible roster of one occurrence.
type RosterMessage struct {
	EventID    int    `json:"eventId"`
	Occurrence string `json:"occurrence"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// RosterMessageEmailData holds data for the roster_message template.
type RosterMessageEmailData struct {
	FullName        string
	EventTitle      string
	OccurrenceLabel string
	Subject         string
	Body            string
}

// MessageResult reports delivery per member.
type MessageResult struct {
	Sent    []int           `json:"sent"`
	Skipped []int           `json:"skipped"`
	Failed  []MemberFailure `json:"failed"`
}

// MessageService delivers roster messages.
type MessageService interface {
	SendRosterMessage(ctx context.Context, ev *Event, occurrence string, recipients []Participant, subject, body string) (*MessageResult, error)
}
