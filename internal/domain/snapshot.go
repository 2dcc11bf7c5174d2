package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt decodes ids that the service sends either as numbers or numeric strings.
// Anything else decodes to zero, which every consumer treats as "no id".
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = 0
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil || n != float64(int(n)) {
		*f = 0
		return nil
	}
	*f = FlexInt(int(n))
	return nil
}

// Int returns the id as an int.
func (f FlexInt) Int() int { return int(f) }

// FlexInts converts a list of wire ids, dropping non-positive entries.
func FlexInts(in []FlexInt) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v > 0 {
			out = append(out, int(v))
		}
	}
	return out
}

// CountsSnapshot is a raw per-occurrence count block.
type CountsSnapshot struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Pending int `json:"pending"`
}

// OccurrenceSnapshot is the raw wire form of an occurrence.
type OccurrenceSnapshot struct {
	Start   string          `json:"start"`
	Label   string          `json:"label"`
	IsPast  *bool           `json:"isPast,omitempty"`
	IsToday *bool           `json:"isToday,omitempty"`
	IsNext  *bool           `json:"isNext,omitempty"`
	Counts  *CountsSnapshot `json:"counts,omitempty"`
}

// PaymentSnapshot is the raw wire form of a payment record.
type PaymentSnapshot struct {
	Status     string `json:"status"`
	Method     string `json:"method"`
	RecordedAt string `json:"recordedAt"`
	RecordedBy string `json:"recordedBy"`
}

// ScopeSnapshot is the raw wire form of an occurrence scope.
type ScopeSnapshot struct {
	Mode        string   `json:"mode"`
	Occurrences []string `json:"occurrences"`
}

// ParticipantSnapshot is the raw wire form of a participant.
type ParticipantSnapshot struct {
	MemberID        FlexInt           `json:"memberId"`
	RegistrationID  FlexInt           `json:"registrationId"`
	FullName        string            `json:"fullName"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Attendance      map[string]string `json:"attendance"`
	Payment         *PaymentSnapshot  `json:"payment,omitempty"`
	OccurrenceScope *ScopeSnapshot    `json:"occurrenceScope,omitempty"`
}

// EventSnapshot is the raw wire form of a full event. IsAssigned is nil when
// the service did not say.
type EventSnapshot struct {
	ID           FlexInt               `json:"id"`
	Title        string                `json:"title"`
	DateLabel    string                `json:"dateLabel"`
	Status       string                `json:"status"`
	Price        float64               `json:"price"`
	IsAssigned   *bool                 `json:"isAssigned,omitempty"`
	Occurrences  []OccurrenceSnapshot  `json:"occurrences"`
	Participants []ParticipantSnapshot `json:"participants"`
	Conditions   []string              `json:"conditions"`
	Counts       *struct {
		Participants *int `json:"participants,omitempty"`
	} `json:"counts,omitempty"`
}

// SummarySnapshot is the raw wire form of an event summary.
type SummarySnapshot struct {
	ID        FlexInt `json:"id"`
	Title     string  `json:"title"`
	DateLabel string  `json:"dateLabel"`
	Status    string  `json:"status"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Assigned  bool    `json:"assigned"`
	IsDraft   *bool   `json:"isDraft,omitempty"`
}

// MemberCandidateSnapshot is the raw wire form of a picker candidate.
type MemberCandidateSnapshot struct {
	ID                      FlexInt  `json:"id"`
	FullName                string   `json:"fullName"`
	Eligible                *bool    `json:"eligible,omitempty"`
	AlreadyAssigned         bool     `json:"alreadyAssigned"`
	AssignedOtherOccurrence bool     `json:"assignedOtherOccurrence"`
	IneligibleReasons       []string `json:"ineligibleReasons"`
}
