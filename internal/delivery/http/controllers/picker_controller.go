package controllers

import (
	"log/slog"
	"net/http"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/helpers"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// SearchPickerRequest is the request body for PUT /picker/search.
type SearchPickerRequest struct {
	Search string `json:"search"`
}

// ScrollPickerRequest is the request body for POST /picker/scroll.
type ScrollPickerRequest struct {
	ScrollTop    int `json:"scrollTop"`
	ClientHeight int `json:"clientHeight"`
	ScrollHeight int `json:"scrollHeight"`
}

// Validate implements Validator.
func (req ScrollPickerRequest) Validate() []string {
	if req.ScrollTop < 0 || req.ClientHeight < 0 || req.ScrollHeight < 0 {
		return []string{"scroll metrics must not be negative"}
	}
	return nil
}

// ScrollResult reports whether a scroll triggered a page load.
type ScrollResult struct {
	Loaded bool              `json:"loaded"`
	Picker domain.PickerView `json:"picker"`
}

// ToggleResult reports the selection state of the toggled member.
type ToggleResult struct {
	Selected bool              `json:"selected"`
	Picker   domain.PickerView `json:"picker"`
}

// PickerSuccessResponse is the success envelope carrying the picker state.
type PickerSuccessResponse struct {
	Data  domain.PickerView `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ScrollSuccessResponse is the success envelope of a scroll.
type ScrollSuccessResponse struct {
	Data  ScrollResult      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ToggleSuccessResponse is the success envelope of a selection toggle.
type ToggleSuccessResponse struct {
	Data  ToggleResult      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type PickerController struct {
	sessionHandler
}

func NewPickerController(logger *slog.Logger, sessions domain.SessionStore) *PickerController {
	return &PickerController{sessionHandler{Logger: logger, Sessions: sessions}}
}

// OpenPicker godoc
// @Summary Open the member picker for an event
// @Description Resets the picker and loads the first page of candidates. The event must be assigned to the animator.
// @Tags picker
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param occurrence query string false "Occurrence key used for eligibility"
// @Success 200 {object} controllers.PickerSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /events/{eventID}/picker [post]
func (c *PickerController) OpenPicker(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	if err := d.OpenPicker(r.Context(), eventID, r.URL.Query().Get("occurrence")); err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.PickerView())
}

// GetPicker godoc
// @Summary Get the picker state
// @Tags picker
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.PickerSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /picker [get]
func (c *PickerController) GetPicker(w http.ResponseWriter, r *http.Request) {
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d.PickerView())
}

// SearchPicker godoc
// @Summary Change the picker search term
// @Description The search is debounced; the first page for the term is loaded asynchronously. Poll GET /picker for the result.
// @Tags picker
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SearchPickerRequest true "Search term"
// @Success 202 {object} controllers.PickerSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /picker/search [put]
func (c *PickerController) SearchPicker(w http.ResponseWriter, r *http.Request) {
	var req SearchPickerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	d.SearchPicker(req.Search)
	helpers.WriteJSONSuccess(w, http.StatusAccepted, d.PickerView())
}

// ScrollPicker godoc
// @Summary Report the picker list scroll position
// @Description Loads the next page when the viewport is near the bottom and more candidates exist.
// @Tags picker
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ScrollPickerRequest true "Viewport metrics"
// @Success 200 {object} controllers.ScrollSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /picker/scroll [post]
func (c *PickerController) ScrollPicker(w http.ResponseWriter, r *http.Request) {
	var req ScrollPickerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	loaded, err := d.ScrollPicker(r.Context(), domain.ScrollPosition(req))
	if err != nil {
		c.fail(w, r, err, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ScrollResult{Loaded: loaded, Picker: d.PickerView()})
}

// TogglePickerSelection godoc
// @Summary Tick or untick a candidate
// @Description Ineligible and already registered candidates cannot be selected.
// @Tags picker
// @Produce json
// @Security BearerAuth
// @Param memberID path int true "Member ID"
// @Success 200 {object} controllers.ToggleSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /picker/selection/{memberID} [post]
func (c *PickerController) TogglePickerSelection(w http.ResponseWriter, r *http.Request) {
	memberID, ok := helpers.PathID(w, r, "memberID")
	if !ok {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	selected := d.TogglePickerSelection(memberID)
	helpers.WriteJSONSuccess(w, http.StatusOK, ToggleResult{Selected: selected, Picker: d.PickerView()})
}

// SubmitPicker godoc
// @Summary Register the selected candidates
// @Tags picker
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AddMembersRequest true "Occurrence scope; memberIds is ignored"
// @Success 200 {object} controllers.AddMembersSuccessResponse
// @Success 207 {object} controllers.AddMembersSuccessResponse "error.code: partial_failure"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: already_loading"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /picker/submit [post]
func (c *PickerController) SubmitPicker(w http.ResponseWriter, r *http.Request) {
	var req AddMembersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	result, err := d.SubmitPicker(r.Context(), req.OccurrenceScope)
	if err != nil {
		c.fail(w, r, err, result)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// ClosePicker godoc
// @Summary Close the member picker
// @Description Pending page loads are discarded when they complete.
// @Tags picker
// @Security BearerAuth
// @Success 204
// @Router /picker [delete]
func (c *PickerController) ClosePicker(w http.ResponseWriter, r *http.Request) {
	d, ok := c.dashboard(w, r)
	if !ok {
		return
	}
	d.ClosePicker()
	w.WriteHeader(http.StatusNoContent)
}
