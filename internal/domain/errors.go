package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures of the geocoding path.
type Kind int

const (
	KindInternal Kind = iota
	// KindValidation is bad or missing caller input. Not retried.
	KindValidation
	// KindConfiguration is a deployment problem such as a missing credential.
	KindConfiguration
	// KindUpstreamUnavailable is a transport fault or non-2xx from the provider.
	KindUpstreamUnavailable
	// KindNotFound means the provider could not place the address.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the typed error returned by the gateway and its clients.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for KindUpstreamUnavailable (0 when
	// the request never got a response).
	Status int
	Err    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the gateway's response code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func ConfigurationError(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// UpstreamUnavailable builds the 502 error. status 0 means no response.
func UpstreamUnavailable(status int, err error) *Error {
	code := "unreachable"
	if status > 0 {
		code = fmt.Sprint(status)
	}
	return &Error{
		Kind:    KindUpstreamUnavailable,
		Message: fmt.Sprintf("Geocode request failed (%s)", code),
		Status:  status,
		Err:     err,
	}
}

// NotFound carries the provider status string as detail.
func NotFound(detail string) *Error {
	if detail == "" {
		detail = "Not found"
	}
	return &Error{Kind: KindNotFound, Message: detail}
}

// KindOf extracts the Kind from err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
