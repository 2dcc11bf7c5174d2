package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

const rosterMessageTemplate = "roster_message"

type messageService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewMessageService returns a MessageService that uses the given Mailer and template renderer.
func NewMessageService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.MessageService {
	return &messageService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendRosterMessage renders the roster_message template once per recipient and
// sends it. Recipients without an email address are skipped. A failed send is
// recorded per member and does not stop the batch.
func (s *messageService) SendRosterMessage(ctx context.Context, ev *domain.Event, occurrence string, recipients []domain.Participant, subject, body string) (*domain.MessageResult, error) {
	if ev == nil {
		return nil, fmt.Errorf("roster message: event is nil")
	}
	label := occurrence
	if occ, ok := ev.Occurrence(occurrence); ok {
		label = occ.Label
	}

	result := &domain.MessageResult{Sent: []int{}, Skipped: []int{}, Failed: []domain.MemberFailure{}}
	for _, p := range recipients {
		email := strings.TrimSpace(p.Email)
		if email == "" {
			result.Skipped = append(result.Skipped, p.MemberID)
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("roster message not attempted", "event_id", ev.ID, "member_id", p.MemberID, "error", err)
			result.Failed = append(result.Failed, domain.MemberFailure{MemberID: p.MemberID, Message: domain.GenericTransportMessage})
			continue
		}
		data := &domain.RosterMessageEmailData{
			FullName:        p.FullName,
			EventTitle:      ev.Title,
			OccurrenceLabel: label,
			Subject:         subject,
			Body:            body,
		}
		renderedSubject, htmlBody, textBody, err := s.renderer.Render(rosterMessageTemplate, data)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s template: %w", rosterMessageTemplate, err)
		}
		msg := domain.OutboundEmail{To: email, Subject: renderedSubject, HTML: htmlBody, Text: textBody}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn("roster message not delivered", "event_id", ev.ID, "member_id", p.MemberID, "error", err)
			result.Failed = append(result.Failed, domain.MemberFailure{MemberID: p.MemberID, Message: domain.GenericTransportMessage})
			continue
		}
		result.Sent = append(result.Sent, p.MemberID)
	}
	s.logger.Info("roster message sent", "event_id", ev.ID, "occurrence", occurrence,
		"sent", len(result.Sent), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}
