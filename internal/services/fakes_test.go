package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

var fixedNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.Local)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func boolPtr(b bool) *bool { return &b }

// fakeGateway is a RosterGateway whose calls are answered by the per-method funcs.
// A nil func fails the call.
type fakeGateway struct {
	mu       sync.Mutex
	calls    map[string]int
	searches []domain.SearchMembersRequest
	adds     []domain.AddMembersRequest
	saves    []domain.SaveAttendanceRequest

	listEvents         func(ctx context.Context) (*domain.EventListResponse, error)
	fetchEvent         func(ctx context.Context, id int) (*domain.EventResponse, error)
	claimEvent         func(ctx context.Context, id int) (*domain.EventResponse, error)
	releaseEvent       func(ctx context.Context, id int) (*domain.EventResponse, error)
	saveAttendance     func(ctx context.Context, req domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error)
	togglePayment      func(ctx context.Context, req domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error)
	removeRegistration func(ctx context.Context, req domain.RemoveRegistrationRequest) (*domain.RemoveRegistrationResponse, error)
	searchMembers      func(ctx context.Context, req domain.SearchMembersRequest) (*domain.SearchMembersResponse, error)
	addMembers         func(ctx context.Context, req domain.AddMembersRequest) (*domain.AddMembersResponse, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (f *fakeGateway) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeGateway) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) Searches() []domain.SearchMembersRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SearchMembersRequest(nil), f.searches...)
}

func unexpected(name string) error {
	return fmt.Errorf("unexpected call to %s", name)
}

func (f *fakeGateway) ListEvents(ctx context.Context) (*domain.EventListResponse, error) {
	f.record("ListEvents")
	if f.listEvents == nil {
		return nil, unexpected("ListEvents")
	}
	return f.listEvents(ctx)
}

func (f *fakeGateway) FetchEvent(ctx context.Context, id int) (*domain.EventResponse, error) {
	f.record("FetchEvent")
	if f.fetchEvent == nil {
		return nil, unexpected("FetchEvent")
	}
	return f.fetchEvent(ctx, id)
}

func (f *fakeGateway) ClaimEvent(ctx context.Context, id int) (*domain.EventResponse, error) {
	f.record("ClaimEvent")
	if f.claimEvent == nil {
		return nil, unexpected("ClaimEvent")
	}
	return f.claimEvent(ctx, id)
}

func (f *fakeGateway) ReleaseEvent(ctx context.Context, id int) (*domain.EventResponse, error) {
	f.record("ReleaseEvent")
	if f.releaseEvent == nil {
		return nil, unexpected("ReleaseEvent")
	}
	return f.releaseEvent(ctx, id)
}

func (f *fakeGateway) SaveAttendance(ctx context.Context, req domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error) {
	f.record("SaveAttendance")
	f.mu.Lock()
	f.saves = append(f.saves, req)
	f.mu.Unlock()
	if f.saveAttendance == nil {
		return nil, unexpected("SaveAttendance")
	}
	return f.saveAttendance(ctx, req)
}

func (f *fakeGateway) TogglePayment(ctx context.Context, req domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error) {
	f.record("TogglePayment")
	if f.togglePayment == nil {
		return nil, unexpected("TogglePayment")
	}
	return f.togglePayment(ctx, req)
}

func (f *fakeGateway) RemoveRegistration(ctx context.Context, req domain.RemoveRegistrationRequest) (*domain.RemoveRegistrationResponse, error) {
	f.record("RemoveRegistration")
	if f.removeRegistration == nil {
		return nil, unexpected("RemoveRegistration")
	}
	return f.removeRegistration(ctx, req)
}

func (f *fakeGateway) SearchMembers(ctx context.Context, req domain.SearchMembersRequest) (*domain.SearchMembersResponse, error) {
	f.record("SearchMembers")
	f.mu.Lock()
	f.searches = append(f.searches, req)
	f.mu.Unlock()
	if f.searchMembers == nil {
		return nil, unexpected("SearchMembers")
	}
	return f.searchMembers(ctx, req)
}

func (f *fakeGateway) AddMembers(ctx context.Context, req domain.AddMembersRequest) (*domain.AddMembersResponse, error) {
	f.record("AddMembers")
	f.mu.Lock()
	f.adds = append(f.adds, req)
	f.mu.Unlock()
	if f.addMembers == nil {
		return nil, unexpected("AddMembers")
	}
	return f.addMembers(ctx, req)
}

// fakeMessages records the recipients it was asked to message.
type fakeMessages struct {
	recipients []domain.Participant
	result     *domain.MessageResult
	err        error
}

func (f *fakeMessages) SendRosterMessage(ctx context.Context, ev *domain.Event, occurrence string, recipients []domain.Participant, subject, body string) (*domain.MessageResult, error) {
	f.recipients = recipients
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	res := &domain.MessageResult{Sent: []int{}, Skipped: []int{}, Failed: []domain.MemberFailure{}}
	for _, p := range recipients {
		res.Sent = append(res.Sent, p.MemberID)
	}
	return res, nil
}

// judoSnapshot is a paid weekly event: Ada paid online, Bob unpaid, Cleo only
// registered for the second session.
func judoSnapshot(assigned bool) domain.EventSnapshot {
	return domain.EventSnapshot{
		ID:         1,
		Title:      "Judo",
		Price:      12,
		IsAssigned: boolPtr(assigned),
		Occurrences: []domain.OccurrenceSnapshot{
			{Start: "2024-01-01"},
			{Start: "2024-01-08"},
		},
		Participants: []domain.ParticipantSnapshot{
			{
				MemberID: 10, RegistrationID: 100, FullName: "Ada", Email: "ada@example.com",
				Attendance: map[string]string{"2024-01-01": "present"},
				Payment:    &domain.PaymentSnapshot{Status: "paid", Method: "stripe_checkout"},
			},
			{MemberID: 11, RegistrationID: 101, FullName: "Bob", Email: "bob@example.com"},
			{
				MemberID: 12, RegistrationID: 102, FullName: "Cleo",
				OccurrenceScope: &domain.ScopeSnapshot{Mode: "custom", Occurrences: []string{"2024-01-08"}},
			},
		},
	}
}

func testConfig() DashboardConfig {
	return DashboardConfig{
		Timeout:               time.Second,
		LockedPaymentMethods:  []string{"stripe", "online"},
		PickerPerPage:         2,
		PickerDebounce:        20 * time.Millisecond,
		PickerScrollThreshold: 48,
		Now:                   func() time.Time { return fixedNow },
	}
}

// loadedDashboard returns a dashboard whose initial load returned events and summaries.
func loadedDashboard(t *testing.T, gw *fakeGateway, events []domain.EventSnapshot, summaries ...domain.SummarySnapshot) *dashboard {
	t.Helper()
	gw.listEvents = func(context.Context) (*domain.EventListResponse, error) {
		return &domain.EventListResponse{Events: events, Summaries: summaries}, nil
	}
	d := newDashboard(gw, &fakeMessages{}, discardLogger(), nil, testConfig())
	require.NoError(t, d.Load(context.Background()))
	return d
}
