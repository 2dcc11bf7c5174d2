package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/helpers"
	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/middleware"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// SetFilterRequest is the request body for PUT /dashboard/filter.
type SetFilterRequest struct {
	Filter domain.FilterKey `json:"filter"`
}

// Validate implements Validator.
func (req SetFilterRequest) Validate() []string {
	if !req.Filter.Valid() {
		return []string{fmt.Sprintf("filter must be one of %v", domain.FilterKeys)}
	}
	return nil
}

// SetSelectionRequest is the request body for PUT /dashboard/selection.
// An eventId of 0 clears the selection.
type SetSelectionRequest struct {
	EventID    int    `json:"eventId"`
	Occurrence string `json:"occurrence"`
}

// Validate implements Validator.
func (req SetSelectionRequest) Validate() []string {
	if req.EventID < 0 {
		return []string{"eventId must not be negative"}
	}
	return nil
}

// SetAttendanceRequest is the request body for PUT /events/{eventID}/attendance.
type SetAttendanceRequest struct {
	Occurrence     string                  `json:"occurrence"`
	MemberID       int                     `json:"memberId"`
	RegistrationID int                     `json:"registrationId"`
	Status         domain.AttendanceStatus `json:"status"`
}

// Validate implements Validator.
func (req SetAttendanceRequest) Validate() []string {
	var errs []string
	if req.MemberID <= 0 && req.RegistrationID <= 0 {
		errs = append(errs, "memberId or registrationId is required")
	}
	if !req.Status.Valid() {
		errs = append(errs, "status must be present, absent or pending")
	}
	return errs
}

// AddMembersRequest is the request body for POST /events/{eventID}/members and
// POST /picker/submit (member ids are ignored there).
type AddMembersRequest struct {
	MemberIDs       []int                  `json:"memberIds"`
	OccurrenceScope domain.OccurrenceScope `json:"occurrenceScope"`
}

// Validate implements Validator.
func (req AddMembersRequest) Validate() []string {
	switch req.OccurrenceScope.Mode {
	case "", domain.ScopeAll, domain.ScopeCustom:
		return nil
	}
	return []string{"occurrenceScope.mode must be all or custom"}
}

// SendMessageRequest is the request body for POST /events/{eventID}/messages.
type SendMessageRequest struct {
	Occurrence string `json:"occurrence"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Validate implements Validator.
func (req SendMessageRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(req.Subject) == "" {
		errs = append(errs, "subject is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		errs = append(errs, "body is required")
	}
	return errs
}

// DashboardViewSuccessResponse is the success envelope carrying the dashboard projection.
type DashboardViewSuccessResponse struct {
	Data  domain.DashboardView `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// EventSuccessResponse is the success envelope carrying one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// PaymentSuccessResponse is the success envelope carrying a payment record.
type PaymentSuccessResponse struct {
	Data  domain.Payment    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AddMembersSuccessResponse is the envelope of a bulk add (200, or 207 with error set).
type AddMembersSuccessResponse struct {
	Data  domain.AddMembersResult `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// SendMessageSuccessResponse is the envelope of a bulk message (200, or 207 with error set).
type SendMessageSuccessResponse struct {
	Data  domain.MessageResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type DashboardController struct {
	sessionHandler
}

func NewDashboardController(logger *slog.Logger, sessions domain.SessionStore) *DashboardController {
	return &DashboardController{sessionHandler{Logger: logger, Sessions: sessions}}
}

// GetDashboard godoc
// @Summary Get the dashboard projection
// @Description Returns the filtered event list, tab counts, current selection, visible roster and stats of the authenticated animator.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /dashboard [get]
func (c *DashboardController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// LoadDashboard godoc
// @Summary Load events from the roster service
// @Description Fetches the event list and summaries, then repairs the selection for the current filter.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /dashboard/load [post]
func (c *DashboardController) LoadDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.Load(r.Context()); err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// CloseDashboard godoc
// @Summary End the dashboard session
// @Description Drops the cached events, selection and picker of the authenticated animator.
// @Tags dashboard
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /dashboard [delete]
func (c *DashboardController) CloseDashboard(w http.ResponseWriter, r *http.Request) {
	animatorID, ok := middleware.AnimatorIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	c.Sessions.Close(animatorID)
	w.WriteHeader(http.StatusNoContent)
}

// SetFilter godoc
// @Summary Switch the event tab
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetFilterRequest true "Filter key: all, assigned, upcoming, past or draft"
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /dashboard/filter [put]
func (c *DashboardController) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req SetFilterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.SetFilter(req.Filter); err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// SetSelection godoc
// @Summary Select an event and occurrence
// @Description The event must be in the current filtered list. An empty occurrence selects today's, the next, or the last one.
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetSelectionRequest true "Selection"
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /dashboard/selection [put]
func (c *DashboardController) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SetSelectionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.Select(req.EventID, req.Occurrence); err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// FetchEvent godoc
// @Summary Load the full event
// @Description Concurrent fetches of the same event share one request to the roster service.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/fetch [post]
func (c *DashboardController) FetchEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, domain.DashboardService.FetchEvent)
}

// ClaimEvent godoc
// @Summary Assign the event to the authenticated animator
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: locked"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/claim [post]
func (c *DashboardController) ClaimEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, domain.DashboardService.ClaimEvent)
}

// ReleaseEvent godoc
// @Summary Give the event back
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/release [post]
func (c *DashboardController) ReleaseEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, domain.DashboardService.ReleaseEvent)
}

func (c *DashboardController) eventAction(w http.ResponseWriter, r *http.Request, action func(domain.DashboardService, context.Context, int) (*domain.Event, error)) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	ev, err := action(d, r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ev)
}

// SetAttendance godoc
// @Summary Set a participant's attendance
// @Description Applied locally at once and rolled back if the roster service rejects it. An empty occurrence uses the selected one.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body SetAttendanceRequest true "Attendance change"
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/attendance [put]
func (c *DashboardController) SetAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req SetAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	err := d.SetAttendance(r.Context(), domain.AttendanceChange{
		EventID:        eventID,
		Occurrence:     req.Occurrence,
		MemberID:       req.MemberID,
		RegistrationID: req.RegistrationID,
		Status:         req.Status,
	})
	if err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// TogglePayment godoc
// @Summary Toggle a registration between paid and unpaid
// @Description Online payments and free events are locked.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} controllers.PaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: locked"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/registrations/{registrationID}/payment [post]
func (c *DashboardController) TogglePayment(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	registrationID, ok := helpers.PathID(w, r, "registrationID")
	if !ok {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	payment, err := d.TogglePayment(r.Context(), eventID, registrationID)
	if err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, payment)
}

// RemoveRegistration godoc
// @Summary Cancel a registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} controllers.DashboardViewSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: already_loading"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/registrations/{registrationID} [delete]
func (c *DashboardController) RemoveRegistration(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	registrationID, ok := helpers.PathID(w, r, "registrationID")
	if !ok {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.RemoveRegistration(r.Context(), eventID, registrationID); err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.View())
}

// AddMembers godoc
// @Summary Register several members
// @Description Members the service did not add are listed; the ones it added stay added (207).
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body AddMembersRequest true "Members and occurrence scope"
// @Success 200 {object} controllers.AddMembersSuccessResponse
// @Success 207 {object} controllers.AddMembersSuccessResponse "error.code: partial_failure"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: already_loading"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/members [post]
func (c *DashboardController) AddMembers(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req AddMembersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	result, err := d.AddMembers(r.Context(), eventID, req.MemberIDs, req.OccurrenceScope)
	if err != nil {
		c.fail(w, r, err, result)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// SendMessage godoc
// @Summary Email the visible roster
// @Description Renders the roster message for each participant of the occurrence (or the whole event) and sends it. Participants without an email are skipped.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body SendMessageRequest true "Message"
// @Success 200 {object} controllers.SendMessageSuccessResponse
// @Success 207 {object} controllers.SendMessageSuccessResponse "error.code: partial_failure"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/messages [post]
func (c *DashboardController) SendMessage(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	result, err := d.SendMessage(r.Context(), domain.RosterMessage{
		EventID:    eventID,
		Occurrence: req.Occurrence,
		Subject:    req.Subject,
		Body:       req.Body,
	})
	if err != nil {
		c.fail(w, r, err, result)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
