package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how the caller should react to them.
type Kind string

const (
	KindConfiguration        Kind = "configuration"
	KindValidation           Kind = "validation"
	KindInvalidState         Kind = "invalid_state"
	KindUpstreamAuth         Kind = "upstream_auth"
	KindUpstreamProfileFetch Kind = "upstream_profile_fetch"
	KindUpstreamProvider     Kind = "upstream_provider"
	KindUnsupportedModel     Kind = "unsupported_model"
	KindEmptyResponse        Kind = "empty_response"
	KindNotFound             Kind = "not_found"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrUpstreamAuth         = &Error{Kind: KindUpstreamAuth}
	ErrUpstreamProfileFetch = &Error{Kind: KindUpstreamProfileFetch}
	ErrUpstreamProvider     = &Error{Kind: KindUpstreamProvider}
	ErrUnsupportedModel     = &Error{Kind: KindUnsupportedModel}
	ErrEmptyResponse        = &Error{Kind: KindEmptyResponse}
	ErrNotFound             = &Error{Kind: KindNotFound}
)

// Error is the single error type surfaced by the application services.
// Status and Body are only set for upstream failures and carry what the
// external service answered.
type Error struct {
	Kind     Kind
	Message  string
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: %d - %s", msg, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func UnsupportedModel(model string) *Error {
	return &Error{Kind: KindUnsupportedModel, Message: fmt.Sprintf("unsupported model: %s", model)}
}

func EmptyResponse(provider string) *Error {
	return &Error{
		Kind:     KindEmptyResponse,
		Provider: provider,
		Message:  fmt.Sprintf("no response from %s API", provider),
	}
}

// UpstreamAuth reports a failed token request. err is set when the request
// never produced a response.
func UpstreamAuth(message string, status int, body string, err error) *Error {
	return &Error{Kind: KindUpstreamAuth, Message: message, Status: status, Body: body, Err: err}
}

func UpstreamProfileFetch(status int, body string, err error) *Error {
	return &Error{
		Kind:    KindUpstreamProfileFetch,
		Message: "failed to fetch user info",
		Status:  status,
		Body:    body,
		Err:     err,
	}
}

func UpstreamProvider(provider string, status int, body string, err error) *Error {
	return &Error{
		Kind:     KindUpstreamProvider,
		Provider: provider,
		Message:  fmt.Sprintf("%s API error", provider),
		Status:   status,
		Body:     body,
		Err:      err,
	}
}

// HTTPStatus maps an error to the status code the gateway answers with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindUnsupportedModel:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamProvider:
		// provider quota is surfaced as-is so callers can back off
		if e.Status == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case KindUpstreamAuth, KindUpstreamProfileFetch, KindEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
