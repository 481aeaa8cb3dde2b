package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoWorkspaceSelected = errors.New("no workspace selected: open the extension popup and select a workspace")
	ErrAuthRequired        = errors.New("authentication required: please log in")
	ErrValidation          = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrUpstream            = errors.New("upstream request failed")
	ErrCancelled           = errors.New("cancelled by user")
	ErrKeyNotFound         = errors.New("storage key not found")
)

// UpstreamError describes a failed call to the backend or the design tool.
// StatusCode is zero when the request never produced a response.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s request failed with status %d", e.Service, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s request failed: %s", e.Service, e.Message)
	default:
		return fmt.Sprintf("%s request failed", e.Service)
	}
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

type ErrorCode string

const (
	CodeNoWorkspace  ErrorCode = "no_workspace"
	CodeAuthRequired ErrorCode = "auth_required"
	CodeValidation   ErrorCode = "validation"
	CodeNotFound     ErrorCode = "not_found"
	CodeUpstream     ErrorCode = "upstream"
	CodeCancelled    ErrorCode = "cancelled"
	CodeInternal     ErrorCode = "internal"
)

// CodeOf maps an error onto the envelope code callers switch on.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoWorkspaceSelected):
		return CodeNoWorkspace
	case errors.Is(err, ErrAuthRequired):
		return CodeAuthRequired
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrKeyNotFound):
		return CodeNotFound
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	default:
		return CodeInternal
	}
}
