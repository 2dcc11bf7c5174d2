package domain

import (
	"sort"
	"strings"
	"time"
)

// NormalizeEvent turns a raw snapshot into an Event. It returns false when the
// snapshot has no usable id. Occurrences without a start key and participants
// without any id are dropped; duplicate registration ids keep the first entry.
// Occurrence counts are always derived from the roster the snapshot carries.
func NormalizeEvent(s *EventSnapshot, now time.Time) (*Event, bool) {
	if s == nil || s.ID <= 0 {
		return nil, false
	}
	ev := &Event{
		ID:           int(s.ID),
		Title:        strings.TrimSpace(s.Title),
		DateLabel:    strings.TrimSpace(s.DateLabel),
		StatusValue:  strings.TrimSpace(s.Status),
		Price:        s.Price,
		Occurrences:  normalizeOccurrences(s.Occurrences, now),
		Participants: normalizeParticipants(s.Participants),
		Conditions:   normalizeConditions(s.Conditions),
	}
	if s.IsAssigned != nil {
		ev.IsAssigned = *s.IsAssigned
	}
	ev.RecomputeCounts()
	if s.Counts != nil && s.Counts.Participants != nil && *s.Counts.Participants >= 0 {
		ev.Counts.Participants = *s.Counts.Participants
	}
	return ev, true
}

func normalizeConditions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func normalizeOccurrences(in []OccurrenceSnapshot, now time.Time) []Occurrence {
	out := make([]Occurrence, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	flagged := false
	for _, o := range in {
		start := strings.TrimSpace(o.Start)
		if start == "" {
			continue
		}
		if _, dup := seen[start]; dup {
			continue
		}
		seen[start] = struct{}{}
		occ := Occurrence{Start: start, Label: strings.TrimSpace(o.Label)}
		if occ.Label == "" {
			occ.Label = start
		}
		if o.IsPast != nil || o.IsToday != nil || o.IsNext != nil {
			flagged = true
			occ.IsPast = o.IsPast != nil && *o.IsPast
			occ.IsToday = o.IsToday != nil && *o.IsToday
			occ.IsNext = o.IsNext != nil && *o.IsNext
		}
		out = append(out, occ)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	if !flagged {
		deriveOccurrenceFlags(out, now)
	}
	return out
}

// deriveOccurrenceFlags fills isPast/isToday/isNext from parsed start times when
// the service sent none of them. The next occurrence is the first one not in the past.
func deriveOccurrenceFlags(occs []Occurrence, now time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	nextSet := false
	for i := range occs {
		t, ok := ParseOccurrenceTime(occs[i].Start)
		if !ok {
			continue
		}
		t = t.In(now.Location())
		occs[i].IsToday = !t.Before(today) && t.Before(tomorrow)
		occs[i].IsPast = t.Before(today)
		if !occs[i].IsPast && !nextSet {
			occs[i].IsNext = true
			nextSet = true
		}
	}
}

func normalizeParticipants(in []ParticipantSnapshot) []Participant {
	out := make([]Participant, 0, len(in))
	seenReg := make(map[int]struct{}, len(in))
	for i := range in {
		p, ok := NormalizeParticipant(&in[i])
		if !ok {
			continue
		}
		if p.RegistrationID > 0 {
			if _, dup := seenReg[p.RegistrationID]; dup {
				continue
			}
			seenReg[p.RegistrationID] = struct{}{}
		}
		out = append(out, p)
	}
	return out
}

// NormalizeParticipant converts one raw participant. It returns false when the
// participant carries neither a registration id nor a member id.
func NormalizeParticipant(s *ParticipantSnapshot) (Participant, bool) {
	if s == nil || (s.RegistrationID <= 0 && s.MemberID <= 0) {
		return Participant{}, false
	}
	p := Participant{
		MemberID:        max(int(s.MemberID), 0),
		RegistrationID:  max(int(s.RegistrationID), 0),
		FullName:        strings.TrimSpace(s.FullName),
		Email:           strings.TrimSpace(s.Email),
		Phone:           strings.TrimSpace(s.Phone),
		Attendance:      make(map[string]AttendanceStatus, len(s.Attendance)),
		Payment:         NormalizePayment(s.Payment),
		OccurrenceScope: NormalizeScope(s.OccurrenceScope),
	}
	for k, v := range s.Attendance {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		p.Attendance[k] = NormalizeAttendanceStatus(v)
	}
	return p, true
}

// NormalizeAttendanceStatus maps any unknown status to pending.
func NormalizeAttendanceStatus(s string) AttendanceStatus {
	st := AttendanceStatus(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st
	}
	return AttendancePending
}

// NormalizePayment converts a raw payment record; a missing record is unpaid.
func NormalizePayment(s *PaymentSnapshot) Payment {
	if s == nil {
		return Payment{Status: PaymentUnpaid}
	}
	status := PaymentUnpaid
	if strings.EqualFold(strings.TrimSpace(s.Status), string(PaymentPaid)) {
		status = PaymentPaid
	}
	return Payment{
		Status:     status,
		Method:     strings.TrimSpace(s.Method),
		RecordedAt: strings.TrimSpace(s.RecordedAt),
		RecordedBy: strings.TrimSpace(s.RecordedBy),
	}
}

// NormalizeScope converts a raw scope. Custom scopes with no occurrence collapse
// to mode all.
func NormalizeScope(s *ScopeSnapshot) OccurrenceScope {
	if s == nil {
		return OccurrenceScope{Mode: ScopeAll}
	}
	return NewOccurrenceScope(ScopeMode(strings.ToLower(strings.TrimSpace(s.Mode))), s.Occurrences)
}

// NewOccurrenceScope builds a scope that satisfies the custom-implies-non-empty rule.
func NewOccurrenceScope(mode ScopeMode, occurrences []string) OccurrenceScope {
	if mode != ScopeCustom {
		return OccurrenceScope{Mode: ScopeAll}
	}
	list := make([]string, 0, len(occurrences))
	seen := make(map[string]struct{}, len(occurrences))
	for _, o := range occurrences {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		list = append(list, o)
	}
	if len(list) == 0 {
		return OccurrenceScope{Mode: ScopeAll}
	}
	return OccurrenceScope{Mode: ScopeCustom, Occurrences: list}
}

// NormalizeSummary converts a raw summary; it returns false without a usable id.
func NormalizeSummary(s *SummarySnapshot) (EventSummary, bool) {
	if s == nil || s.ID <= 0 {
		return EventSummary{}, false
	}
	sum := EventSummary{
		ID:        int(s.ID),
		Title:     strings.TrimSpace(s.Title),
		DateLabel: strings.TrimSpace(s.DateLabel),
		Status:    strings.TrimSpace(s.Status),
		StartDate: strings.TrimSpace(s.StartDate),
		EndDate:   strings.TrimSpace(s.EndDate),
		Assigned:  s.Assigned,
	}
	if s.IsDraft != nil {
		sum.IsDraft = *s.IsDraft
	} else {
		sum.IsDraft = IsDraftStatus(sum.Status)
	}
	return sum, true
}

// SummaryOf projects a full event into its summary form.
func SummaryOf(e *Event) EventSummary {
	sum := EventSummary{
		ID:        e.ID,
		Title:     e.Title,
		DateLabel: e.DateLabel,
		Status:    e.StatusValue,
		Assigned:  e.IsAssigned,
		IsDraft:   e.IsDraft(),
	}
	if n := len(e.Occurrences); n > 0 {
		sum.StartDate = e.Occurrences[0].Start
		sum.EndDate = e.Occurrences[n-1].Start
	}
	return sum
}

// NormalizeCandidate converts a raw picker candidate. A candidate whose
// eligibility is not stated is eligible.
func NormalizeCandidate(s *MemberCandidateSnapshot) (MemberCandidate, bool) {
	if s == nil || s.ID <= 0 {
		return MemberCandidate{}, false
	}
	c := MemberCandidate{
		ID:                      int(s.ID),
		FullName:                strings.TrimSpace(s.FullName),
		Eligible:                s.Eligible == nil || *s.Eligible,
		AlreadyAssigned:         s.AlreadyAssigned,
		AssignedOtherOccurrence: s.AssignedOtherOccurrence,
	}
	for _, r := range s.IneligibleReasons {
		if r = strings.TrimSpace(r); r != "" {
			c.IneligibleReasons = append(c.IneligibleReasons, r)
		}
	}
	return c, true
}
