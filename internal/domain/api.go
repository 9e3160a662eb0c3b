package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ApiErrorType int

const (
	ApiErrorTypeUnknown ApiErrorType = iota
	ApiErrorTypeBadParam
	ApiErrorTypeMissingParam
	ApiErrorTypeUnmappableRecord
	ApiErrorTypeUpstreamUnavailable
	ApiErrorTypeStorageUnavailable
)

var apiErrorTypeNames = map[ApiErrorType]string{
	ApiErrorTypeUnknown:             "unknown",
	ApiErrorTypeBadParam:            "bad_param",
	ApiErrorTypeMissingParam:        "missing_param",
	ApiErrorTypeUnmappableRecord:    "unmappable_record",
	ApiErrorTypeUpstreamUnavailable: "upstream_unavailable",
	ApiErrorTypeStorageUnavailable:  "storage_unavailable",
}

func (t ApiErrorType) String() string {
	if name, ok := apiErrorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ApiErrorType(%d)", int(t))
}

func (t ApiErrorType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ApiErrorType) UnmarshalText(text []byte) error {
	for value, name := range apiErrorTypeNames {
		if name == string(text) {
			*t = value
			return nil
		}
	}
	return fmt.Errorf("%s is not a valid ApiErrorType", text)
}

type ApiError struct {
	Type    ApiErrorType
	Details []string
}

func (res ApiError) Description() string {
	switch res.Type {
	case ApiErrorTypeBadParam:
		return "A validation error occurred"
	case ApiErrorTypeMissingParam:
		return "A required parameter is missing"
	case ApiErrorTypeUnmappableRecord:
		return "The registry returned a document that could not be mapped"
	case ApiErrorTypeUpstreamUnavailable:
		return "The vehicle registry is unavailable"
	case ApiErrorTypeStorageUnavailable:
		return "Vehicle storage is unavailable"
	default:
		return "An unknown error occurred"
	}
}

type apiErrorJSON struct {
	Type        ApiErrorType `json:"error"`
	Description string       `json:"error_description"`
	Details     []string     `json:"error_details"`
}

func (res ApiError) MarshalJSON() ([]byte, error) {
	return json.Marshal(apiErrorJSON{
		Type:        res.Type,
		Description: res.Description(),
		Details:     res.Details,
	})
}

func (res *ApiError) UnmarshalJSON(data []byte) error {
	var raw apiErrorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res.Type = raw.Type
	res.Details = raw.Details
	return nil
}

func (res ApiError) Error() string {
	return fmt.Sprintf("%s: %s\n%s", res.Type, res.Description(), strings.Join(res.Details, "\n"))
}

type FailureDetails[T any] struct {
	ApiError
	Item T
}

// KLUDGE:
//
//	ApiError's Marshaler is promoted to FailureDetails by embedding, so without
//	this override the Item field would never be serialized.
func (failure FailureDetails[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Item        T            `json:"item"`
		Type        ApiErrorType `json:"error"`
		Description string       `json:"error_description"`
		Details     []string     `json:"error_details"`
	}{
		Item:        failure.Item,
		Type:        failure.Type,
		Description: failure.Description(),
		Details:     failure.Details,
	})
}

func (failure *FailureDetails[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Item    T            `json:"item"`
		Type    ApiErrorType `json:"error"`
		Details []string     `json:"error_details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	failure.Item = raw.Item
	failure.Type = raw.Type
	failure.Details = raw.Details
	return nil
}

type BulkApiResponse[T any, R any] struct {
	Success  int                 `json:"success"`
	Total    int                 `json:"total"`
	Items    []R                 `json:"items"`
	Failures []FailureDetails[T] `json:"failures"`
}
