package domain

import (
	"errors"
	"strings"
)

// Error kinds surfaced by dashboard actions. Use errors.Is against these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrLocked         = errors.New("locked")
	ErrNotFound       = errors.New("not found")
	ErrTransport      = errors.New("transport failure")
	ErrPartialFailure = errors.New("partial failure")
	ErrAlreadyLoading = errors.New("already loading")
)

// GenericTransportMessage is shown to staff when a request failed for a reason
// they cannot act on.
const GenericTransportMessage = "The request could not be completed. Please try again."

// ActionError is the typed error returned by every dashboard action.
// Message is safe to show to staff; Err is the underlying cause, kept for logging.
type ActionError struct {
	Kind    error
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	var b strings.Builder
	if e.Action != "" {
		b.WriteString(e.Action)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *ActionError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewValidationError reports a local precondition failure.
func NewValidationError(action, message string) *ActionError {
	return &ActionError{Kind: ErrValidation, Action: action, Message: message}
}

// NewLockedError reports an action refused because of domain state.
func NewLockedError(action, message string) *ActionError {
	return &ActionError{Kind: ErrLocked, Action: action, Message: message}
}

// NewAlreadyLoadingError reports an action rejected because the same action is
// already in flight for the entity.
func NewAlreadyLoadingError(action string) *ActionError {
	return &ActionError{Kind: ErrAlreadyLoading, Action: action, Message: "a request for this item is already in progress"}
}

// AsActionError wraps err as an ActionError for action. Errors that already carry
// a kind keep it; anything else becomes a Transport error with the generic message.
func AsActionError(action string, err error) *ActionError {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		if ae.Action == "" {
			cp := *ae
			cp.Action = action
			return &cp
		}
		return ae
	}
	for _, kind := range []error{ErrValidation, ErrLocked, ErrNotFound, ErrAlreadyLoading, ErrPartialFailure} {
		if errors.Is(err, kind) {
			return &ActionError{Kind: kind, Action: action, Message: messageOf(err, kind), Err: err}
		}
	}
	return &ActionError{Kind: ErrTransport, Action: action, Message: GenericTransportMessage, Err: err}
}

// RemoteError is returned by gateways when the service answered with an error.
// Kind is one of the sentinel kinds; Message is the service's own text.
type RemoteError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *RemoteError) Unwrap() error { return e.Kind }

func messageOf(err error, kind error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return kind.Error()
}
