package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPlateFormat  = errors.New("invalid plate format")
	ErrMapping             = errors.New("registry document does not match expected schema")
	ErrUpstreamUnavailable = errors.New("vehicle registry unavailable")
	ErrDuplicateKey        = errors.New("vehicle already stored")
	ErrStorageUnavailable  = errors.New("vehicle storage unavailable")
	ErrVehicleNotFound     = errors.New("vehicle not found")
)

// MappingError reports a structural break in a registry document. Path uses
// the registry's own key names, e.g. "kjoretoydataListe[0].godkjenning".
type MappingError struct {
	Path   string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrMapping, e.Path, e.Reason)
}

func (e *MappingError) Unwrap() error {
	return ErrMapping
}

// UpstreamError carries the registry's response for diagnostics. StatusCode is
// zero when the request never got a response.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrUpstreamUnavailable, e.Err)
	}
	return fmt.Sprintf("%s: status code %d not 200: %s", ErrUpstreamUnavailable, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}
