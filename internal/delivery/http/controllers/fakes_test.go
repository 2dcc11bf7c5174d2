package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/middleware"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeDashboard implements domain.DashboardService for handler tests.
type fakeDashboard struct {
	err          error
	view         domain.DashboardView
	event        *domain.Event
	payment      domain.Payment
	addResult    *domain.AddMembersResult
	msgResult    *domain.MessageResult
	picker       domain.PickerView
	scrollLoaded bool
	toggled      bool

	lastFilter     domain.FilterKey
	lastSelectID   int
	lastSelectOcc  string
	lastEventID    int
	lastRegID      int
	lastChange     domain.AttendanceChange
	lastMemberIDs  []int
	lastScope      domain.OccurrenceScope
	lastMessage    domain.RosterMessage
	lastOccurrence string
	lastSearch     string
	lastScroll     domain.ScrollPosition
	lastToggleID   int
	pickerClosed   bool
	closed         bool
}

func (f *fakeDashboard) Load(ctx context.Context) error { return f.err }
func (f *fakeDashboard) View() domain.DashboardView      { return f.view }

func (f *fakeDashboard) SetFilter(filter domain.FilterKey) error {
	f.lastFilter = filter
	return f.err
}

func (f *fakeDashboard) Select(eventID int, occurrence string) error {
	f.lastSelectID, f.lastSelectOcc = eventID, occurrence
	return f.err
}

func (f *fakeDashboard) eventResult(eventID int) (*domain.Event, error) {
	f.lastEventID = eventID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeDashboard) FetchEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	return f.eventResult(eventID)
}

func (f *fakeDashboard) ClaimEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	return f.eventResult(eventID)
}

func (f *fakeDashboard) ReleaseEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	return f.eventResult(eventID)
}

func (f *fakeDashboard) SetAttendance(ctx context.Context, change domain.AttendanceChange) error {
	f.lastChange = change
	return f.err
}

func (f *fakeDashboard) TogglePayment(ctx context.Context, eventID, registrationID int) (domain.Payment, error) {
	f.lastEventID, f.lastRegID = eventID, registrationID
	return f.payment, f.err
}

func (f *fakeDashboard) RemoveRegistration(ctx context.Context, eventID, registrationID int) error {
	f.lastEventID, f.lastRegID = eventID, registrationID
	return f.err
}

func (f *fakeDashboard) AddMembers(ctx context.Context, eventID int, memberIDs []int, scope domain.OccurrenceScope) (*domain.AddMembersResult, error) {
	f.lastEventID, f.lastMemberIDs, f.lastScope = eventID, memberIDs, scope
	return f.addResult, f.err
}

func (f *fakeDashboard) SendMessage(ctx context.Context, msg domain.RosterMessage) (*domain.MessageResult, error) {
	f.lastMessage = msg
	return f.msgResult, f.err
}

func (f *fakeDashboard) OpenPicker(ctx context.Context, eventID int, occurrence string) error {
	f.lastEventID, f.lastOccurrence = eventID, occurrence
	return f.err
}

func (f *fakeDashboard) PickerView() domain.PickerView { return f.picker }
func (f *fakeDashboard) SearchPicker(term string)      { f.lastSearch = term }

func (f *fakeDashboard) ScrollPicker(ctx context.Context, pos domain.ScrollPosition) (bool, error) {
	f.lastScroll = pos
	return f.scrollLoaded, f.err
}

func (f *fakeDashboard) TogglePickerSelection(memberID int) bool {
	f.lastToggleID = memberID
	return f.toggled
}

func (f *fakeDashboard) SubmitPicker(ctx context.Context, scope domain.OccurrenceScope) (*domain.AddMembersResult, error) {
	f.lastScope = scope
	return f.addResult, f.err
}

func (f *fakeDashboard) ClosePicker() { f.pickerClosed = true }
func (f *fakeDashboard) Close()       { f.closed = true }

// fakeSessions hands out the same dashboard to every animator.
type fakeSessions struct {
	dashboard *fakeDashboard
	lastGet   string
	lastClose string
}

func (s *fakeSessions) Get(animatorID string) domain.DashboardService {
	s.lastGet = animatorID
	return s.dashboard
}

func (s *fakeSessions) Close(animatorID string) { s.lastClose = animatorID }

const testAnimator = "anim-42"

// newRequest builds a request with the animator set in the context unless anonymous.
func newRequest(method, target, body string, anonymous bool) *http.Request {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, target, nil)
	} else {
		req, _ = http.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if !anonymous {
		req = req.WithContext(middleware.SetAnimatorID(req.Context(), testAnimator))
	}
	return req
}
