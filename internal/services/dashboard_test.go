package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
	"github.com/mjpery-beep/mj-member-sub014/internal/pending"
)

func TestDashboard_Load(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw,
		[]domain.EventSnapshot{judoSnapshot(true)},
		domain.SummarySnapshot{ID: 2, Title: "Yoga", StartDate: "2024-02-01", EndDate: "2024-02-01"},
	)

	view := d.View()
	require.Len(t, view.Events, 2)
	assert.Equal(t, 1, view.SelectedEventID)
	assert.Equal(t, "2024-01-08", view.SelectedOccurrence)
	assert.Equal(t, 2, view.Tabs[domain.FilterAll])
	assert.Equal(t, 1, view.Tabs[domain.FilterAssigned])
	assert.True(t, view.CanMutate)
}

func TestDashboard_Load_Error(t *testing.T) {
	gw := newFakeGateway()
	gw.listEvents = func(context.Context) (*domain.EventListResponse, error) {
		return nil, errors.New("connection refused")
	}
	d := newDashboard(gw, &fakeMessages{}, discardLogger(), nil, testConfig())

	err := d.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrTransport)
	var ae *domain.ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.GenericTransportMessage, ae.Message)
	assert.Empty(t, d.View().Events)
}

func TestDashboard_SetFilter_RepairsSelection(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw,
		[]domain.EventSnapshot{judoSnapshot(true)},
		domain.SummarySnapshot{ID: 2, Title: "Yoga", StartDate: "2024-02-01"},
	)
	require.NoError(t, d.Select(2, ""))
	require.Equal(t, 2, d.View().SelectedEventID)

	require.NoError(t, d.SetFilter(domain.FilterAssigned))
	view := d.View()
	assert.Equal(t, 1, view.SelectedEventID)
	assert.Equal(t, "2024-01-08", view.SelectedOccurrence)

	err := d.Select(2, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = d.SetFilter("bogus")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.FilterAssigned, d.View().Filter)
}

func TestDashboard_Select_UnknownOccurrence(t *testing.T) {
	d := loadedDashboard(t, newFakeGateway(), []domain.EventSnapshot{judoSnapshot(true)})
	err := d.Select(1, "2030-01-01")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, d.Select(1, "2024-01-01"))
	assert.Equal(t, "2024-01-01", d.View().SelectedOccurrence)
}

func TestDashboard_SetAttendance_RoundTrip(t *testing.T) {
	gw := newFakeGateway()
	swim := domain.EventSnapshot{
		ID: 5, Title: "Swim", Price: 5, IsAssigned: boolPtr(true),
		Occurrences:  []domain.OccurrenceSnapshot{{Start: "2024-03-02T10:00"}},
		Participants: []domain.ParticipantSnapshot{{MemberID: 7, RegistrationID: 70, FullName: "Dan"}},
	}
	d := loadedDashboard(t, gw, []domain.EventSnapshot{swim})
	gw.saveAttendance = func(_ context.Context, req domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error) {
		return &domain.SaveAttendanceResponse{
			Entries: []domain.AttendanceEntry{{MemberID: 7, RegistrationID: 70, Status: "present"}},
			Counts:  &domain.CountsSnapshot{Present: 1},
		}, nil
	}
	require.NoError(t, d.Select(5, "2024-03-02T10:00"))

	err := d.SetAttendance(context.Background(), domain.AttendanceChange{
		EventID: 5, MemberID: 7, RegistrationID: 70, Status: domain.AttendancePresent,
	})
	require.NoError(t, err)

	require.Len(t, gw.saves, 1)
	assert.Equal(t, "2024-03-02T10:00", gw.saves[0].OccurrenceStart)
	assert.Equal(t, "present", gw.saves[0].Entries[0].Status)

	view := d.View()
	require.NotNil(t, view.Event)
	assert.Equal(t, domain.OccurrenceCounts{Present: 1}, view.Event.Occurrences[0].Counts)
	assert.Equal(t, domain.RosterStats{Total: 1, Present: 1, Unpaid: 1}, view.Stats)
	assert.Equal(t, domain.AttendancePresent, view.Participants[0].AttendanceFor("2024-03-02T10:00"))
}

func TestDashboard_SetAttendance_RollsBackOnFailure(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
	gw.saveAttendance = func(context.Context, domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error) {
		return nil, errors.New("timeout")
	}

	err := d.SetAttendance(context.Background(), domain.AttendanceChange{
		EventID: 1, Occurrence: "2024-01-08", RegistrationID: 101, Status: domain.AttendanceAbsent,
	})
	require.ErrorIs(t, err, domain.ErrTransport)

	ev, ok := d.cache.GetEvent(1)
	require.True(t, ok)
	bob, _ := ev.Participant(domain.ParticipantRef{RegistrationID: 101})
	assert.Equal(t, domain.AttendancePending, bob.AttendanceFor("2024-01-08"))
	occ, _ := ev.Occurrence("2024-01-08")
	assert.Equal(t, domain.OccurrenceCounts{Pending: 3}, occ.Counts)
}

func TestDashboard_SetAttendance_SameStatusSendsNothing(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})

	err := d.SetAttendance(context.Background(), domain.AttendanceChange{
		EventID: 1, Occurrence: "2024-01-01", MemberID: 10, RegistrationID: 100, Status: domain.AttendancePresent,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, gw.Calls("SaveAttendance"))
}

func TestDashboard_SetAttendance_Validation(t *testing.T) {
	tests := []struct {
		name     string
		assigned bool
		change   domain.AttendanceChange
	}{
		{"event not assigned", false, domain.AttendanceChange{EventID: 1, Occurrence: "2024-01-08", RegistrationID: 101, Status: domain.AttendancePresent}},
		{"event not loaded", true, domain.AttendanceChange{EventID: 9, Occurrence: "2024-01-08", RegistrationID: 101, Status: domain.AttendancePresent}},
		{"unknown occurrence", true, domain.AttendanceChange{EventID: 1, Occurrence: "2024-02-01", RegistrationID: 101, Status: domain.AttendancePresent}},
		{"participant outside scope", true, domain.AttendanceChange{EventID: 1, Occurrence: "2024-01-01", RegistrationID: 102, Status: domain.AttendancePresent}},
		{"unknown participant", true, domain.AttendanceChange{EventID: 1, Occurrence: "2024-01-08", RegistrationID: 999, Status: domain.AttendancePresent}},
		{"invalid status", true, domain.AttendanceChange{EventID: 1, Occurrence: "2024-01-08", RegistrationID: 101, Status: "late"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(tt.assigned)})

			err := d.SetAttendance(context.Background(), tt.change)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, gw.Calls("SaveAttendance"))
		})
	}
}

func TestDashboard_NotFoundEvictsEvent(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
	gone := &domain.RemoteError{Kind: domain.ErrNotFound, StatusCode: 404, Message: "event deleted"}
	gw.saveAttendance = func(context.Context, domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error) {
		return nil, gone
	}
	gw.fetchEvent = func(context.Context, int) (*domain.EventResponse, error) {
		return nil, gone
	}

	err := d.SetAttendance(context.Background(), domain.AttendanceChange{
		EventID: 1, Occurrence: "2024-01-08", RegistrationID: 101, Status: domain.AttendancePresent,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	var ae *domain.ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "event deleted", ae.Message)

	assert.Equal(t, 1, gw.Calls("FetchEvent"))
	_, ok := d.cache.GetEvent(1)
	assert.False(t, ok)
	assert.Equal(t, 0, d.View().SelectedEventID)
}

func TestDashboard_ClaimEvent_JoinsInFlightRequest(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(false)})
	release := make(chan struct{})
	gw.claimEvent = func(context.Context, int) (*domain.EventResponse, error) {
		<-release
		return &domain.EventResponse{}, nil
	}

	var wg sync.WaitGroup
	results := make([]*domain.Event, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.ClaimEvent(context.Background(), 1)
		}(i)
	}
	key := pending.Key{Action: pending.ActionClaim, EntityID: 1}
	require.Eventually(t, func() bool { return d.pending.Waiting(key) == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gw.Calls("ClaimEvent"))
	for i := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.True(t, results[i].IsAssigned)
	}
	assert.False(t, d.pending.InFlight(key))
	assert.True(t, d.View().CanMutate)
}

func TestDashboard_ClaimEvent_SummaryOnlyEvent(t *testing.T) {
	yoga := domain.SummarySnapshot{ID: 2, Title: "Yoga", StartDate: "2024-02-01"}

	tests := []struct {
		name      string
		fetch     func(context.Context, int) (*domain.EventResponse, error)
		wantTitle string
		wantOccs  int
	}{
		{
			name: "loads the full event",
			fetch: func(context.Context, int) (*domain.EventResponse, error) {
				return &domain.EventResponse{Event: &domain.EventSnapshot{
					ID: 2, Title: "Yoga du soir", IsAssigned: boolPtr(false),
					Occurrences: []domain.OccurrenceSnapshot{{Start: "2024-02-01"}},
				}}, nil
			},
			wantTitle: "Yoga du soir",
			wantOccs:  1,
		},
		{
			name: "falls back to the summary",
			fetch: func(context.Context, int) (*domain.EventResponse, error) {
				return nil, errors.New("connection reset")
			},
			wantTitle: "Yoga",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)}, yoga)
			gw.claimEvent = func(context.Context, int) (*domain.EventResponse, error) {
				return &domain.EventResponse{}, nil
			}
			gw.fetchEvent = tt.fetch

			ev, err := d.ClaimEvent(context.Background(), 2)
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, 2, ev.ID)
			assert.Equal(t, tt.wantTitle, ev.Title)
			assert.True(t, ev.IsAssigned)
			assert.Len(t, ev.Occurrences, tt.wantOccs)
			assert.Equal(t, 1, gw.Calls("FetchEvent"))
			assert.Equal(t, 2, d.View().Tabs[domain.FilterAssigned])
		})
	}
}

func TestDashboard_ReleaseEvent_KeepsSelection(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
	gw.releaseEvent = func(context.Context, int) (*domain.EventResponse, error) {
		return &domain.EventResponse{}, nil
	}
	require.NoError(t, d.SetFilter(domain.FilterAssigned))
	require.Equal(t, 1, d.View().SelectedEventID)

	ev, err := d.ReleaseEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ev.IsAssigned)

	view := d.View()
	assert.Equal(t, 1, view.SelectedEventID)
	assert.False(t, view.CanMutate)
	assert.Equal(t, 0, view.Tabs[domain.FilterAssigned])
}

func TestDashboard_TogglePayment(t *testing.T) {
	free := judoSnapshot(true)
	free.Price = 0

	tests := []struct {
		name           string
		snapshot       domain.EventSnapshot
		registrationID int
		toggle         func(context.Context, domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error)
		wantErr        error
		wantPayment    domain.Payment
		wantCalls      int
	}{
		{
			name:           "paid online is locked",
			snapshot:       judoSnapshot(true),
			registrationID: 100,
			wantErr:        domain.ErrLocked,
			wantPayment:    domain.Payment{Status: domain.PaymentPaid, Method: "stripe_checkout"},
		},
		{
			name:           "free event is locked",
			snapshot:       free,
			registrationID: 101,
			wantErr:        domain.ErrLocked,
			wantPayment:    domain.Payment{Status: domain.PaymentUnpaid},
		},
		{
			name:           "missing registration id",
			snapshot:       judoSnapshot(true),
			registrationID: 0,
			wantErr:        domain.ErrValidation,
		},
		{
			name:           "unpaid becomes paid",
			snapshot:       judoSnapshot(true),
			registrationID: 101,
			toggle: func(context.Context, domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error) {
				return &domain.TogglePaymentResponse{Payment: &domain.PaymentSnapshot{Status: "paid", Method: "cash", RecordedBy: "Eve"}}, nil
			},
			wantPayment: domain.Payment{Status: domain.PaymentPaid, Method: "cash", RecordedBy: "Eve"},
			wantCalls:   1,
		},
		{
			name:           "failure rolls back",
			snapshot:       judoSnapshot(true),
			registrationID: 101,
			toggle: func(context.Context, domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error) {
				return nil, errors.New("bad gateway")
			},
			wantErr:     domain.ErrTransport,
			wantPayment: domain.Payment{Status: domain.PaymentUnpaid},
			wantCalls:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			d := loadedDashboard(t, gw, []domain.EventSnapshot{tt.snapshot})
			gw.togglePayment = tt.toggle

			got, err := d.TogglePayment(context.Background(), 1, tt.registrationID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPayment, got)
			}
			assert.Equal(t, tt.wantCalls, gw.Calls("TogglePayment"))

			if tt.registrationID > 0 {
				ev, _ := d.cache.GetEvent(1)
				p, ok := ev.Participant(domain.ParticipantRef{RegistrationID: tt.registrationID})
				require.True(t, ok)
				assert.Equal(t, tt.wantPayment, p.Payment)
			}
		})
	}
}

func TestDashboard_RemoveRegistration(t *testing.T) {
	withoutBob := judoSnapshot(true)
	withoutBob.Participants = append(withoutBob.Participants[:1:1], withoutBob.Participants[2])

	tests := []struct {
		name       string
		resp       *domain.RemoveRegistrationResponse
		wantFetch  int
		fetchReply *domain.EventSnapshot
		fetchErr   error
	}{
		{"snapshot in response", &domain.RemoveRegistrationResponse{Event: &withoutBob}, 0, nil, nil},
		{"removed member only", &domain.RemoveRegistrationResponse{Removed: &domain.RemovedMember{MemberID: 11}}, 0, nil, nil},
		{"empty response removes locally", &domain.RemoveRegistrationResponse{}, 0, nil, errors.New("connection reset")},
		{"malformed snapshot removes locally", &domain.RemoveRegistrationResponse{Event: &domain.EventSnapshot{}}, 0, nil, errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
			gw.removeRegistration = func(_ context.Context, req domain.RemoveRegistrationRequest) (*domain.RemoveRegistrationResponse, error) {
				assert.Equal(t, 101, req.RegistrationID)
				return tt.resp, nil
			}
			gw.fetchEvent = func(context.Context, int) (*domain.EventResponse, error) {
				if tt.fetchErr != nil {
					return nil, tt.fetchErr
				}
				return &domain.EventResponse{Event: tt.fetchReply}, nil
			}

			require.NoError(t, d.RemoveRegistration(context.Background(), 1, 101))
			assert.Equal(t, tt.wantFetch, gw.Calls("FetchEvent"))

			ev, ok := d.cache.GetEvent(1)
			require.True(t, ok)
			_, found := ev.Participant(domain.ParticipantRef{RegistrationID: 101})
			assert.False(t, found)
			assert.Equal(t, 2, ev.Counts.Participants)
			occ, _ := ev.Occurrence("2024-01-08")
			assert.Equal(t, domain.OccurrenceCounts{Pending: 2}, occ.Counts)
		})
	}
}

func TestDashboard_RemoveRegistration_RejectsDuplicate(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
	started := make(chan struct{})
	release := make(chan struct{})
	gw.removeRegistration = func(context.Context, domain.RemoveRegistrationRequest) (*domain.RemoveRegistrationResponse, error) {
		close(started)
		<-release
		return &domain.RemoveRegistrationResponse{Removed: &domain.RemovedMember{MemberID: 11}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- d.RemoveRegistration(context.Background(), 1, 101) }()
	<-started

	err := d.RemoveRegistration(context.Background(), 1, 101)
	assert.ErrorIs(t, err, domain.ErrAlreadyLoading)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.Calls("RemoveRegistration"))
}

func TestDashboard_AddMembers_PartialSuccess(t *testing.T) {
	gw := newFakeGateway()
	swim := domain.EventSnapshot{
		ID: 5, Title: "Swim", Price: 5, IsAssigned: boolPtr(true),
		Occurrences: []domain.OccurrenceSnapshot{{Start: "2024-03-02"}},
	}
	d := loadedDashboard(t, gw, []domain.EventSnapshot{swim})
	gw.addMembers = func(context.Context, domain.AddMembersRequest) (*domain.AddMembersResponse, error) {
		return &domain.AddMembersResponse{
			Added:           []domain.FlexInt{10},
			AlreadyAssigned: []domain.FlexInt{20},
			Errors:          []domain.AddMemberError{{MemberID: 30, Message: "not eligible"}},
		}, nil
	}

	result, err := d.AddMembers(context.Background(), 5, []int{10, 20, 30}, domain.OccurrenceScope{Mode: domain.ScopeAll})
	require.ErrorIs(t, err, domain.ErrPartialFailure)
	require.NotNil(t, result)
	assert.Equal(t, []int{10}, result.Added)
	assert.Equal(t, []int{20}, result.AlreadyAssigned)
	assert.Equal(t, []domain.MemberFailure{{MemberID: 30, Message: "not eligible"}}, result.Failed)
	assert.Equal(t, []int{20, 30}, result.NotAdded)

	require.Len(t, gw.adds, 1)
	assert.Equal(t, []int{10, 20, 30}, gw.adds[0].MemberIDs)

	ev, _ := d.cache.GetEvent(5)
	require.Len(t, ev.Participants, 1)
	assert.Equal(t, 10, ev.Participants[0].MemberID)
	assert.Equal(t, 1, ev.Counts.Participants)
	assert.Equal(t, domain.OccurrenceCounts{Pending: 1}, ev.Occurrences[0].Counts)
}

func TestDashboard_AddMembers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int
		scope   domain.OccurrenceScope
		resp    *domain.AddMembersResponse
		wantErr error
		calls   int
	}{
		{"no ids", []int{0, -1}, domain.OccurrenceScope{}, nil, domain.ErrValidation, 0},
		{"unknown occurrence", []int{40}, domain.OccurrenceScope{Mode: domain.ScopeCustom, Occurrences: []string{"2030-01-01"}}, nil, domain.ErrValidation, 0},
		{"nothing added", []int{40}, domain.OccurrenceScope{}, &domain.AddMembersResponse{AlreadyAssigned: []domain.FlexInt{40}}, domain.ErrValidation, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
			gw.addMembers = func(context.Context, domain.AddMembersRequest) (*domain.AddMembersResponse, error) {
				return tt.resp, nil
			}

			_, err := d.AddMembers(context.Background(), 1, tt.ids, tt.scope)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.calls, gw.Calls("AddMembers"))
		})
	}
}

func TestDashboard_SendMessage(t *testing.T) {
	gw := newFakeGateway()
	d := loadedDashboard(t, gw, []domain.EventSnapshot{judoSnapshot(true)})
	msgs := &fakeMessages{}
	d.messages = msgs

	result, err := d.SendMessage(context.Background(), domain.RosterMessage{
		EventID: 1, Occurrence: "2024-01-01", Subject: "Gear", Body: "Bring your belt",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, result.Sent)
	require.Len(t, msgs.recipients, 2)

	msgs.result = &domain.MessageResult{Sent: []int{10}, Failed: []domain.MemberFailure{{MemberID: 11, Message: "bounced"}}}
	_, err = d.SendMessage(context.Background(), domain.RosterMessage{EventID: 1, Subject: "Gear", Body: "Bring your belt"})
	assert.ErrorIs(t, err, domain.ErrPartialFailure)

	_, err = d.SendMessage(context.Background(), domain.RosterMessage{EventID: 1, Subject: " ", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDashboard_Close(t *testing.T) {
	d := loadedDashboard(t, newFakeGateway(), []domain.EventSnapshot{judoSnapshot(true)})
	d.Close()

	view := d.View()
	assert.Empty(t, view.Events)
	assert.Equal(t, 0, view.SelectedEventID)
	assert.False(t, d.PickerView().Open)
}

func TestSessionStore(t *testing.T) {
	created := 0
	store := NewSessionStore(func(animatorID string) domain.DashboardService {
		created++
		return NewDashboard(newFakeGateway(), &fakeMessages{}, discardLogger(), nil, testConfig())
	}, discardLogger())

	a := store.Get("anim-1")
	assert.Same(t, a, store.Get("anim-1"))
	store.Get("anim-2")
	assert.Equal(t, 2, created)

	store.Close("anim-1")
	store.Close("unknown")
	assert.NotSame(t, a, store.Get("anim-1"))
	assert.Equal(t, 3, created)
}
