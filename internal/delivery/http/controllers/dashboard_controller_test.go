package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/helpers"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

func newDashboardController() (*DashboardController, *fakeSessions) {
	sessions := &fakeSessions{dashboard: &fakeDashboard{}}
	return NewDashboardController(testLogger, sessions), sessions
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var resp struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	if data != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp.Error
}

func TestDashboardController_GetDashboard(t *testing.T) {
	c, sessions := newDashboardController()
	sessions.dashboard.view = domain.DashboardView{Filter: domain.FilterAssigned, SelectedEventID: 7}

	rec := httptest.NewRecorder()
	c.GetDashboard(rec, newRequest(http.MethodGet, "/dashboard", "", false))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testAnimator, sessions.lastGet)
	var view domain.DashboardView
	assert.Nil(t, decodeEnvelope(t, rec, &view))
	assert.Equal(t, domain.FilterAssigned, view.Filter)
	assert.Equal(t, 7, view.SelectedEventID)
}

func TestDashboardController_Unauthorized(t *testing.T) {
	c, sessions := newDashboardController()
	rec := httptest.NewRecorder()
	c.LoadDashboard(rec, newRequest(http.MethodPost, "/dashboard/load", "", true))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sessions.lastGet)
	apiErr := decodeEnvelope(t, rec, nil)
	require.NotNil(t, apiErr)
	assert.Equal(t, helpers.ErrCodeUnauthorized, apiErr.Code)
}

func TestDashboardController_LoadDashboard(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"transport", domain.AsActionError("load", errors.New("connection refused")), http.StatusBadGateway, helpers.ErrCodeBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			sessions.dashboard.err = tt.err
			rec := httptest.NewRecorder()
			c.LoadDashboard(rec, newRequest(http.MethodPost, "/dashboard/load", "", false))

			assert.Equal(t, tt.wantStatus, rec.Code)
			apiErr := decodeEnvelope(t, rec, nil)
			if tt.wantCode == "" {
				assert.Nil(t, apiErr)
				return
			}
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, domain.GenericTransportMessage, apiErr.Message)
		})
	}
}

func TestDashboardController_CloseDashboard(t *testing.T) {
	c, sessions := newDashboardController()
	rec := httptest.NewRecorder()
	c.CloseDashboard(rec, newRequest(http.MethodDelete, "/dashboard", "", false))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testAnimator, sessions.lastClose)
}

func TestDashboardController_SetFilter(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFilter domain.FilterKey
	}{
		{"success", `{"filter":"upcoming"}`, http.StatusOK, domain.FilterUpcoming},
		{"unknown filter", `{"filter":"archived"}`, http.StatusBadRequest, ""},
		{"unknown field", `{"filter":"all","extra":1}`, http.StatusBadRequest, ""},
		{"malformed", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			rec := httptest.NewRecorder()
			c.SetFilter(rec, newRequest(http.MethodPut, "/dashboard/filter", tt.body, false))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantFilter, sessions.dashboard.lastFilter)
		})
	}
}

func TestDashboardController_SetSelection(t *testing.T) {
	c, sessions := newDashboardController()
	rec := httptest.NewRecorder()
	c.SetSelection(rec, newRequest(http.MethodPut, "/dashboard/selection", `{"eventId":3,"occurrence":"2024-01-08"}`, false))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, sessions.dashboard.lastSelectID)
	assert.Equal(t, "2024-01-08", sessions.dashboard.lastSelectOcc)

	c, sessions = newDashboardController()
	sessions.dashboard.err = domain.NewValidationError("select", "event is not in the current list")
	rec = httptest.NewRecorder()
	c.SetSelection(rec, newRequest(http.MethodPut, "/dashboard/selection", `{"eventId":9}`, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeEnvelope(t, rec, nil)
	require.NotNil(t, apiErr)
	assert.Equal(t, "event is not in the current list", apiErr.Message)
}

func TestDashboardController_EventActions(t *testing.T) {
	handlers := map[string]func(*DashboardController) http.HandlerFunc{
		"fetch":   func(c *DashboardController) http.HandlerFunc { return c.FetchEvent },
		"claim":   func(c *DashboardController) http.HandlerFunc { return c.ClaimEvent },
		"release": func(c *DashboardController) http.HandlerFunc { return c.ReleaseEvent },
	}
	for name, handlerOf := range handlers {
		t.Run(name, func(t *testing.T) {
			tests := []struct {
				name       string
				pathID     string
				err        error
				wantStatus int
			}{
				{"success", "5", nil, http.StatusOK},
				{"invalid id", "abc", nil, http.StatusBadRequest},
				{"zero id", "0", nil, http.StatusBadRequest},
				{"not found", "5", domain.AsActionError(name, &domain.RemoteError{Kind: domain.ErrNotFound}), http.StatusNotFound},
				{"locked", "5", domain.NewLockedError(name, "assigned to someone else"), http.StatusConflict},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					c, sessions := newDashboardController()
					handler := handlerOf(c)
					sessions.dashboard.event = &domain.Event{ID: 5, Title: "Judo"}
					sessions.dashboard.err = tt.err
					req := newRequest(http.MethodPost, "/events/"+tt.pathID+"/"+name, "", false)
					req.SetPathValue("eventID", tt.pathID)
					rec := httptest.NewRecorder()
					handler(rec, req)

					assert.Equal(t, tt.wantStatus, rec.Code)
					if tt.wantStatus != http.StatusOK {
						return
					}
					assert.Equal(t, 5, sessions.dashboard.lastEventID)
					var ev domain.Event
					assert.Nil(t, decodeEnvelope(t, rec, &ev))
					assert.Equal(t, "Judo", ev.Title)
				})
			}
		})
	}
}

func TestDashboardController_SetAttendance(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		check      func(t *testing.T, change domain.AttendanceChange)
	}{
		{
			name:       "success",
			body:       `{"memberId":10,"registrationId":100,"occurrence":"2024-01-01","status":"absent"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, change domain.AttendanceChange) {
				assert.Equal(t, domain.AttendanceChange{
					EventID: 1, Occurrence: "2024-01-01", MemberID: 10, RegistrationID: 100, Status: domain.AttendanceAbsent,
				}, change)
			},
		},
		{name: "unknown status", body: `{"memberId":10,"status":"late"}`, wantStatus: http.StatusBadRequest},
		{name: "no participant", body: `{"status":"present"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "rejected by service",
			body:       `{"memberId":10,"status":"present"}`,
			err:        domain.AsActionError("attendance", errors.New("502 bad gateway")),
			wantStatus: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			sessions.dashboard.err = tt.err
			req := newRequest(http.MethodPut, "/events/1/attendance", tt.body, false)
			req.SetPathValue("eventID", "1")
			rec := httptest.NewRecorder()
			c.SetAttendance(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, sessions.dashboard.lastChange)
			}
		})
	}
}

func TestDashboardController_TogglePayment(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"locked", domain.NewLockedError("payment", "paid online"), http.StatusConflict, helpers.ErrCodeLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			sessions.dashboard.err = tt.err
			sessions.dashboard.payment = domain.Payment{Status: domain.PaymentPaid, Method: "manual"}
			req := newRequest(http.MethodPost, "/events/1/registrations/101/payment", "", false)
			req.SetPathValue("eventID", "1")
			req.SetPathValue("registrationID", "101")
			rec := httptest.NewRecorder()
			c.TogglePayment(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, 1, sessions.dashboard.lastEventID)
			assert.Equal(t, 101, sessions.dashboard.lastRegID)
			var payment domain.Payment
			apiErr := decodeEnvelope(t, rec, &payment)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				assert.Equal(t, "paid online", apiErr.Message)
				return
			}
			assert.Equal(t, domain.PaymentPaid, payment.Status)
		})
	}
}

func TestDashboardController_RemoveRegistration(t *testing.T) {
	tests := []struct {
		name       string
		regID      string
		err        error
		wantStatus int
	}{
		{"success", "101", nil, http.StatusOK},
		{"invalid registration", "x", nil, http.StatusBadRequest},
		{"already in progress", "101", domain.NewAlreadyLoadingError("remove_registration"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			sessions.dashboard.err = tt.err
			req := newRequest(http.MethodDelete, "/events/1/registrations/"+tt.regID, "", false)
			req.SetPathValue("eventID", "1")
			req.SetPathValue("registrationID", tt.regID)
			rec := httptest.NewRecorder()
			c.RemoveRegistration(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDashboardController_AddMembers(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, sessions := newDashboardController()
		sessions.dashboard.addResult = &domain.AddMembersResult{Added: []int{10, 20}}
		req := newRequest(http.MethodPost, "/events/1/members",
			`{"memberIds":[10,20],"occurrenceScope":{"mode":"custom","occurrences":["2024-01-08"]}}`, false)
		req.SetPathValue("eventID", "1")
		rec := httptest.NewRecorder()
		c.AddMembers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int{10, 20}, sessions.dashboard.lastMemberIDs)
		assert.Equal(t, domain.OccurrenceScope{Mode: domain.ScopeCustom, Occurrences: []string{"2024-01-08"}}, sessions.dashboard.lastScope)
	})

	t.Run("partial failure keeps result", func(t *testing.T) {
		c, sessions := newDashboardController()
		sessions.dashboard.addResult = &domain.AddMembersResult{
			Added:  []int{10},
			Failed: []domain.MemberFailure{{MemberID: 20, Message: "group is full"}},
		}
		sessions.dashboard.err = &domain.ActionError{Kind: domain.ErrPartialFailure, Action: "add_members", Message: "1 of 2 members added"}
		req := newRequest(http.MethodPost, "/events/1/members", `{"memberIds":[10,20]}`, false)
		req.SetPathValue("eventID", "1")
		rec := httptest.NewRecorder()
		c.AddMembers(rec, req)

		assert.Equal(t, http.StatusMultiStatus, rec.Code)
		var result domain.AddMembersResult
		apiErr := decodeEnvelope(t, rec, &result)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodePartialFailure, apiErr.Code)
		assert.Equal(t, "1 of 2 members added", apiErr.Message)
		assert.Equal(t, []int{10}, result.Added)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, 20, result.Failed[0].MemberID)
	})

	t.Run("bad scope mode", func(t *testing.T) {
		c, _ := newDashboardController()
		req := newRequest(http.MethodPost, "/events/1/members", `{"memberIds":[10],"occurrenceScope":{"mode":"weekly"}}`, false)
		req.SetPathValue("eventID", "1")
		rec := httptest.NewRecorder()
		c.AddMembers(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDashboardController_SendMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"success", `{"occurrence":"2024-01-08","subject":"Hall change","body":"We meet in hall B."}`, nil, http.StatusOK},
		{"missing subject", `{"body":"x"}`, nil, http.StatusBadRequest},
		{"blank body", `{"subject":"x","body":"  "}`, nil, http.StatusBadRequest},
		{"all failed", `{"subject":"x","body":"y"}`, domain.AsActionError("message", errors.New("smtp down")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sessions := newDashboardController()
			sessions.dashboard.err = tt.err
			sessions.dashboard.msgResult = &domain.MessageResult{Sent: []int{10, 11}}
			req := newRequest(http.MethodPost, "/events/1/messages", tt.body, false)
			req.SetPathValue("eventID", "1")
			rec := httptest.NewRecorder()
			c.SendMessage(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, domain.RosterMessage{EventID: 1, Occurrence: "2024-01-08", Subject: "Hall change", Body: "We meet in hall B."}, sessions.dashboard.lastMessage)
			var result domain.MessageResult
			assert.Nil(t, decodeEnvelope(t, rec, &result))
			assert.Equal(t, []int{10, 11}, result.Sent)
		})
	}
}
