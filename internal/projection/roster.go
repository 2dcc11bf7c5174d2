package projection

import (
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// VisibleParticipants returns the roster rows shown for an occurrence. An empty
// occurrence shows everyone.
func VisibleParticipants(ev *domain.Event, occurrence string) []domain.Participant {
	if ev == nil {
		return []domain.Participant{}
	}
	out := make([]domain.Participant, 0, len(ev.Participants))
	for i := range ev.Participants {
		if ev.Participants[i].VisibleFor(occurrence) {
			out = append(out, ev.Participants[i])
		}
	}
	return out
}

// Stats aggregates attendance and payment over the visible roster.
func Stats(ev *domain.Event, occurrence string) domain.RosterStats {
	if ev == nil {
		return domain.RosterStats{}
	}
	counts := domain.CountsFor(ev.Participants, occurrence)
	stats := domain.RosterStats{
		Total:   counts.Total(),
		Present: counts.Present,
		Absent:  counts.Absent,
		Pending: counts.Pending,
	}
	for _, p := range VisibleParticipants(ev, occurrence) {
		if p.Payment.Status == domain.PaymentPaid {
			stats.Paid++
		} else {
			stats.Unpaid++
		}
	}
	return stats
}

// ParticipantAvailability reports whether anyone is visible for the occurrence
// and whether every visible participant holds a registration.
func ParticipantAvailability(ev *domain.Event, occurrence string) domain.Availability {
	visible := VisibleParticipants(ev, occurrence)
	if len(visible) == 0 {
		return domain.Availability{}
	}
	all := true
	for _, p := range visible {
		if p.RegistrationID <= 0 {
			all = false
			break
		}
	}
	return domain.Availability{HasAvailableParticipants: true, AllRegistered: all}
}

// MessageRecipients returns the visible participants eligible for a bulk
// message, one per member.
func MessageRecipients(ev *domain.Event, occurrence string) []domain.Participant {
	visible := VisibleParticipants(ev, occurrence)
	out := make([]domain.Participant, 0, len(visible))
	seen := make(map[int]struct{}, len(visible))
	for _, p := range visible {
		if p.MemberID <= 0 {
			continue
		}
		if _, dup := seen[p.MemberID]; dup {
			continue
		}
		seen[p.MemberID] = struct{}{}
		out = append(out, p)
	}
	return out
}
