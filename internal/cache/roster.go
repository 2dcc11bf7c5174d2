package cache

import (
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// RemoveParticipant removes at most one participant, matched by registration id
// first and member id otherwise, then recomputes the event's counts. It reports
// false when nothing matched; callers fall back to a full refresh.
func (c *Cache) RemoveParticipant(eventID int, ref domain.ParticipantRef) (domain.Participant, bool) {
	if eventID <= 0 || (ref.RegistrationID <= 0 && ref.MemberID <= 0) {
		return domain.Participant{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return domain.Participant{}, false
	}
	for i := range ev.Participants {
		if !ev.Participants[i].Matches(ref) {
			continue
		}
		removed := ev.Participants[i].Clone()
		participants := make([]domain.Participant, 0, len(ev.Participants)-1)
		participants = append(participants, ev.Participants[:i]...)
		participants = append(participants, ev.Participants[i+1:]...)
		ev.Participants = participants
		ev.RecomputeCounts()
		return removed, true
	}
	return domain.Participant{}, false
}

// AddParticipants appends participants that are not yet on the roster and
// recomputes counts. It returns the member ids actually inserted.
func (c *Cache) AddParticipants(eventID int, add []domain.Participant) []int {
	if eventID <= 0 || len(add) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return nil
	}
	var inserted []int
	participants := append([]domain.Participant(nil), ev.Participants...)
	for _, p := range add {
		if p.MemberID <= 0 && p.RegistrationID <= 0 {
			continue
		}
		if hasParticipant(participants, p) {
			continue
		}
		if p.Attendance == nil {
			p.Attendance = make(map[string]domain.AttendanceStatus)
		}
		if p.Payment.Status == "" {
			p.Payment.Status = domain.PaymentUnpaid
		}
		p.OccurrenceScope = domain.NewOccurrenceScope(p.OccurrenceScope.Mode, p.OccurrenceScope.Occurrences)
		participants = append(participants, p)
		inserted = append(inserted, p.MemberID)
	}
	if len(inserted) > 0 {
		ev.Participants = participants
		ev.RecomputeCounts()
	}
	return inserted
}

func hasParticipant(list []domain.Participant, p domain.Participant) bool {
	for i := range list {
		if p.RegistrationID > 0 && list[i].RegistrationID == p.RegistrationID {
			return true
		}
		if p.RegistrationID <= 0 && p.MemberID > 0 && list[i].MemberID == p.MemberID {
			return true
		}
	}
	return false
}

// SetAttendance applies an attendance delta for one participant and occurrence
// and recomputes counts. It returns the previous status for rollback.
func (c *Cache) SetAttendance(eventID int, occurrence string, ref domain.ParticipantRef, status domain.AttendanceStatus) (domain.AttendanceStatus, bool) {
	if eventID <= 0 || occurrence == "" || !status.Valid() {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return "", false
	}
	if _, ok := ev.Occurrence(occurrence); !ok {
		return "", false
	}
	p, ok := ev.Participant(ref)
	if !ok {
		return "", false
	}
	prev := p.AttendanceFor(occurrence)
	attendance := make(map[string]domain.AttendanceStatus, len(p.Attendance)+1)
	for k, v := range p.Attendance {
		attendance[k] = v
	}
	attendance[occurrence] = status
	p.Attendance = attendance
	ev.RecomputeCounts()
	return prev, true
}

// SetOccurrenceCounts replaces one occurrence's counts with values the service
// reported.
func (c *Cache) SetOccurrenceCounts(eventID int, occurrence string, counts domain.OccurrenceCounts) bool {
	if eventID <= 0 || occurrence == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return false
	}
	occ, ok := ev.Occurrence(occurrence)
	if !ok {
		return false
	}
	if counts.Pending < 0 {
		counts.Pending = 0
	}
	occ.Counts = counts
	return true
}

// SetPayment applies a payment delta and returns the previous record for rollback.
func (c *Cache) SetPayment(eventID int, ref domain.ParticipantRef, payment domain.Payment) (domain.Payment, bool) {
	if eventID <= 0 {
		return domain.Payment{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return domain.Payment{}, false
	}
	p, ok := ev.Participant(ref)
	if !ok {
		return domain.Payment{}, false
	}
	prev := p.Payment
	p.Payment = payment
	return prev, true
}

// SwapAttendance sets status to next only if it is currently expected. It is
// used to roll back an optimistic update without clobbering a newer one.
func (c *Cache) SwapAttendance(eventID int, occurrence string, ref domain.ParticipantRef, expected, next domain.AttendanceStatus) bool {
	if eventID <= 0 || occurrence == "" || !next.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return false
	}
	p, ok := ev.Participant(ref)
	if !ok || p.AttendanceFor(occurrence) != expected {
		return false
	}
	attendance := make(map[string]domain.AttendanceStatus, len(p.Attendance)+1)
	for k, v := range p.Attendance {
		attendance[k] = v
	}
	attendance[occurrence] = next
	p.Attendance = attendance
	ev.RecomputeCounts()
	return true
}

// SwapPayment restores prev only if the current record is still expected.
func (c *Cache) SwapPayment(eventID int, ref domain.ParticipantRef, expected, next domain.Payment) bool {
	if eventID <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return false
	}
	p, ok := ev.Participant(ref)
	if !ok || p.Payment != expected {
		return false
	}
	p.Payment = next
	return true
}
