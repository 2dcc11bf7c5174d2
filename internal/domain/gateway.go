package domain

import "context"

// RosterGateway is the port to the remote membership service. Every call is a
// discrete request/response; implementations return *RemoteError for errors the
// service reported and plain errors for transport failures.
type RosterGateway interface {
	ListEvents(ctx context.Context) (*EventListResponse, error)
	FetchEvent(ctx context.Context, eventID int) (*EventResponse, error)
	ClaimEvent(ctx context.Context, eventID int) (*EventResponse, error)
	ReleaseEvent(ctx context.Context, eventID int) (*EventResponse, error)
	SaveAttendance(ctx context.Context, req SaveAttendanceRequest) (*SaveAttendanceResponse, error)
	TogglePayment(ctx context.Context, req TogglePaymentRequest) (*TogglePaymentResponse, error)
	RemoveRegistration(ctx context.Context, req RemoveRegistrationRequest) (*RemoveRegistrationResponse, error)
	SearchMembers(ctx context.Context, req SearchMembersRequest) (*SearchMembersResponse, error)
	AddMembers(ctx context.Context, req AddMembersRequest) (*AddMembersResponse, error)
}

// EventListResponse is the initial dashboard payload.
type EventListResponse struct {
	Events    []EventSnapshot   `json:"events"`
	Summaries []SummarySnapshot `json:"summaries"`
}

// EventResponse carries one event snapshot (fetch, claim, release).
type EventResponse struct {
	Event *EventSnapshot `json:"event"`
}

// AttendanceEntry is one participant's attendance in a save request or response.
type AttendanceEntry struct {
	MemberID       FlexInt `json:"memberId"`
	RegistrationID FlexInt `json:"registrationId"`
	Status         string  `json:"status"`
}

// SaveAttendanceRequest saves attendance for one occurrence.
type SaveAttendanceRequest struct {
	EventID         int               `json:"eventId"`
	OccurrenceStart string            `json:"occurrenceStart"`
	Entries         []AttendanceEntry `json:"entries"`
}

// SaveAttendanceResponse echoes the stored entries and, optionally, fresh counts.
type SaveAttendanceResponse struct {
	Entries []AttendanceEntry `json:"entries"`
	Counts  *CountsSnapshot   `json:"counts,omitempty"`
}

// TogglePaymentRequest flips the payment status of a registration.
type TogglePaymentRequest struct {
	EventID        int `json:"eventId"`
	RegistrationID int `json:"registrationId"`
}

// TogglePaymentResponse carries the resulting payment record.
type TogglePaymentResponse struct {
	Payment *PaymentSnapshot `json:"payment"`
}

// RemoveRegistrationRequest cancels one registration.
type RemoveRegistrationRequest struct {
	EventID        int `json:"eventId"`
	RegistrationID int `json:"registrationId"`
}

// RemoveRegistrationResponse prefers a fresh snapshot; Removed is the fallback.
type RemoveRegistrationResponse struct {
	Event   *EventSnapshot `json:"event,omitempty"`
	Removed *RemovedMember `json:"removed,omitempty"`
}

// RemovedMember identifies the member whose registration was cancelled.
type RemovedMember struct {
	MemberID FlexInt `json:"memberId"`
}

// SearchMembersRequest asks for one page of addable members.
type SearchMembersRequest struct {
	EventID    int    `json:"eventId"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	Search     string `json:"search"`
	Occurrence string `json:"occurrence,omitempty"`
}

// SearchMembersResponse is one page of picker candidates.
type SearchMembersResponse struct {
	Members []MemberCandidateSnapshot `json:"members"`
	HasMore bool                      `json:"hasMore"`
	Page    int                       `json:"page"`
}

// AddMembersRequest registers several members in one call.
type AddMembersRequest struct {
	EventID         int             `json:"eventId"`
	MemberIDs       []int           `json:"memberIds"`
	OccurrenceScope OccurrenceScope `json:"occurrenceScope"`
}

// AddMemberError is a per-member failure in a bulk add.
type AddMemberError struct {
	MemberID FlexInt `json:"memberId"`
	Message  string  `json:"message"`
}

// AddMembersResponse distinguishes added, already-assigned and failed ids.
type AddMembersResponse struct {
	Event           *EventSnapshot   `json:"event,omitempty"`
	Added           []FlexInt        `json:"added"`
	AlreadyAssigned []FlexInt        `json:"alreadyAssigned"`
	Errors          []AddMemberError `json:"errors"`
}
