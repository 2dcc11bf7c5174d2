package domain

import "context"

// AttendanceChange is a request to set one participant's attendance.
// An empty Occurrence means the currently selected occurrence.
type AttendanceChange struct {
	EventID        int              `json:"eventId"`
	Occurrence     string           `json:"occurrence"`
	MemberID       int              `json:"memberId"`
	RegistrationID int              `json:"registrationId"`
	Status         AttendanceStatus `json:"status"`
}

// ScrollPosition describes the picker list viewport on a scroll event.
type ScrollPosition struct {
	ScrollTop    int `json:"scrollTop"`
	ClientHeight int `json:"clientHeight"`
	ScrollHeight int `json:"scrollHeight"`
}

// PickerView is the renderable state of the member picker.
type PickerView struct {
	Open        bool              `json:"open"`
	EventID     int               `json:"eventId"`
	Occurrence  string            `json:"occurrence,omitempty"`
	Page        int               `json:"page"`
	PerPage     int               `json:"perPage"`
	Search      string            `json:"search"`
	HasMore     bool              `json:"hasMore"`
	Loading     bool              `json:"loading"`
	Candidates  []MemberCandidate `json:"candidates"`
	SelectedIDs []int             `json:"selectedIds"`
}

// DashboardService is one animator's dashboard: cache, selection, actions and picker.
type DashboardService interface {
	Load(ctx context.Context) error
	View() DashboardView
	SetFilter(filter FilterKey) error
	Select(eventID int, occurrence string) error

	FetchEvent(ctx context.Context, eventID int) (*Event, error)
	ClaimEvent(ctx context.Context, eventID int) (*Event, error)
	ReleaseEvent(ctx context.Context, eventID int) (*Event, error)
	SetAttendance(ctx context.Context, change AttendanceChange) error
	TogglePayment(ctx context.Context, eventID, registrationID int) (Payment, error)
	RemoveRegistration(ctx context.Context, eventID, registrationID int) error
	AddMembers(ctx context.Context, eventID int, memberIDs []int, scope OccurrenceScope) (*AddMembersResult, error)
	SendMessage(ctx context.Context, msg RosterMessage) (*MessageResult, error)

	OpenPicker(ctx context.Context, eventID int, occurrence string) error
	PickerView() PickerView
	SearchPicker(term string)
	ScrollPicker(ctx context.Context, pos ScrollPosition) (bool, error)
	TogglePickerSelection(memberID int) bool
	SubmitPicker(ctx context.Context, scope OccurrenceScope) (*AddMembersResult, error)
	ClosePicker()

	// Close tears the dashboard down: the picker stops applying responses and
	// the cache is dropped.
	Close()
}

// SessionStore hands out one DashboardService per animator.
type SessionStore interface {
	Get(animatorID string) DashboardService
	Close(animatorID string)
}
