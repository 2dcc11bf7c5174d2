package domain

// AttendanceStatus is the attendance state of a participant for one occurrence.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePending AttendanceStatus = "pending"
)

// Valid reports whether s is one of the three known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendancePending:
		return true
	}
	return false
}

// PaymentStatus is the cash-payment state of a registration.
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

// ScopeMode tells whether a registration covers every occurrence or a subset.
type ScopeMode string

const (
	ScopeAll    ScopeMode = "all"
	ScopeCustom ScopeMode = "custom"
)

// OccurrenceCounts is the attendance breakdown of one occurrence.
type OccurrenceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Pending int `json:"pending"`
}

// Total returns present + absent + pending.
func (c OccurrenceCounts) Total() int {
	return c.Present + c.Absent + c.Pending
}

// Occurrence is one dated instance of an Event. Start identifies it within the event.
type Occurrence struct {
	Start   string           `json:"start"`
	Label   string           `json:"label"`
	IsPast  bool             `json:"isPast"`
	IsToday bool             `json:"isToday"`
	IsNext  bool             `json:"isNext"`
	Counts  OccurrenceCounts `json:"counts"`
}

// Payment is the payment record attached to a registration.
type Payment struct {
	Status     PaymentStatus `json:"status"`
	Method     string        `json:"method"`
	RecordedAt string        `json:"recordedAt"`
	RecordedBy string        `json:"recordedBy"`
}

// OccurrenceScope is the subset of occurrences a registration applies to.
// Mode custom always carries at least one occurrence key.
type OccurrenceScope struct {
	Mode        ScopeMode `json:"mode"`
	Occurrences []string  `json:"occurrences"`
}

// Includes reports whether the scope covers the occurrence key.
func (s OccurrenceScope) Includes(occurrence string) bool {
	if s.Mode != ScopeCustom {
		return true
	}
	for _, o := range s.Occurrences {
		if o == occurrence {
			return true
		}
	}
	return false
}

// Participant is a registered member's relationship to an Event.
type Participant struct {
	MemberID        int                         `json:"memberId"`
	RegistrationID  int                         `json:"registrationId"`
	FullName        string                      `json:"fullName"`
	Email           string                      `json:"email,omitempty"`
	Phone           string                      `json:"phone,omitempty"`
	Attendance      map[string]AttendanceStatus `json:"attendance"`
	Payment         Payment                     `json:"payment"`
	OccurrenceScope OccurrenceScope             `json:"occurrenceScope"`
}

// VisibleFor is the single occurrence-scoping rule. An empty occurrence means no
// occurrence is selected, in which case every participant is visible.
func (p *Participant) VisibleFor(occurrence string) bool {
	if occurrence == "" {
		return true
	}
	return p.OccurrenceScope.Includes(occurrence)
}

// AttendanceFor returns the participant's status for an occurrence, pending if unset.
func (p *Participant) AttendanceFor(occurrence string) AttendanceStatus {
	if s, ok := p.Attendance[occurrence]; ok && s.Valid() {
		return s
	}
	return AttendancePending
}

// Matches reports whether the participant is identified by ref: by registration id
// when ref carries one, else by member id.
func (p *Participant) Matches(ref ParticipantRef) bool {
	if ref.RegistrationID > 0 {
		return p.RegistrationID == ref.RegistrationID
	}
	return ref.MemberID > 0 && p.MemberID == ref.MemberID
}

// ParticipantRef addresses a participant inside an event's roster.
type ParticipantRef struct {
	RegistrationID int `json:"registrationId"`
	MemberID       int `json:"memberId"`
}

// EventCounts holds event-level aggregate counters.
type EventCounts struct {
	Participants int `json:"participants"`
}

// Event is a schedulable activity with its occurrences and roster.
type Event struct {
	ID           int           `json:"id"`
	Title        string        `json:"title"`
	DateLabel    string        `json:"dateLabel"`
	StatusValue  string        `json:"statusValue"`
	Price        float64       `json:"price"`
	IsAssigned   bool          `json:"isAssigned"`
	Occurrences  []Occurrence  `json:"occurrences"`
	Participants []Participant `json:"participants"`
	Conditions   []string      `json:"conditions"`
	Counts       EventCounts   `json:"counts"`
}

// Occurrence returns a pointer to the occurrence with the given start key.
func (e *Event) Occurrence(start string) (*Occurrence, bool) {
	for i := range e.Occurrences {
		if e.Occurrences[i].Start == start {
			return &e.Occurrences[i], true
		}
	}
	return nil, false
}

// Participant returns a pointer to the participant matching ref.
func (e *Event) Participant(ref ParticipantRef) (*Participant, bool) {
	for i := range e.Participants {
		if e.Participants[i].Matches(ref) {
			return &e.Participants[i], true
		}
	}
	return nil, false
}

// IsFree reports whether the event has no price.
func (e *Event) IsFree() bool {
	return e.Price <= 0
}

// IsDraft reports whether the event's status marks it as a draft.
func (e *Event) IsDraft() bool {
	return IsDraftStatus(e.StatusValue)
}

// Clone returns a deep copy so callers outside the cache never alias cached state.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.Occurrences != nil {
		out.Occurrences = append(make([]Occurrence, 0, len(e.Occurrences)), e.Occurrences...)
	}
	out.Conditions = cloneStrings(e.Conditions)
	if e.Participants != nil {
		out.Participants = make([]Participant, len(e.Participants))
		for i := range e.Participants {
			out.Participants[i] = e.Participants[i].Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	out := p
	if p.Attendance != nil {
		out.Attendance = make(map[string]AttendanceStatus, len(p.Attendance))
		for k, v := range p.Attendance {
			out.Attendance[k] = v
		}
	}
	out.OccurrenceScope.Occurrences = cloneStrings(p.OccurrenceScope.Occurrences)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

// EventSummary is the lightweight form of an event that has not been fully loaded.
type EventSummary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	DateLabel string `json:"dateLabel"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Assigned  bool   `json:"assigned"`
	IsDraft   bool   `json:"isDraft"`
}
