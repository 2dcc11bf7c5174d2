package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeNotFound       = "not_found"
	ErrCodeLocked         = "locked"
	ErrCodeAlreadyLoading = "already_loading"
	ErrCodePartialFailure = "partial_failure"
	ErrCodeBadGateway     = "bad_gateway"
	ErrCodeInternalError  = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set,
// except for partial failures where both are set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Data: data})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// WriteActionError maps a dashboard action error onto a status code and error
// code. data is sent along for partial failures so the caller can show which
// items went through.
func WriteActionError(w http.ResponseWriter, err error, data any) {
	status, code := StatusForError(err)
	message := domain.GenericTransportMessage
	var ae *domain.ActionError
	if errors.As(err, &ae) && ae.Message != "" {
		message = ae.Message
	}
	resp := APIResponse{Error: &APIError{Code: code, Message: message}}
	if status == http.StatusMultiStatus {
		resp.Data = data
	}
	writeJSON(w, status, resp)
}

// StatusForError returns the HTTP status and error code for an action error kind.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrLocked):
		return http.StatusConflict, ErrCodeLocked
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrAlreadyLoading):
		return http.StatusConflict, ErrCodeAlreadyLoading
	case errors.Is(err, domain.ErrPartialFailure):
		return http.StatusMultiStatus, ErrCodePartialFailure
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, ErrCodeBadGateway
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

func writeJSON(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
