package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/helpdesk/internal/workspace"
)

// APIError is a decoded error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// Is lets errors.Is match the workspace sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case workspace.ErrNotFound:
		return e.Code == "NOT_FOUND" || e.Status == http.StatusNotFound
	case workspace.ErrConflict:
		return e.Code == "CONFLICT" || e.Status == http.StatusConflict
	}
	return false
}

// missing reports whether the error is a NOT_FOUND naming resource.
func (e *APIError) missing(resource string) bool {
	name, _ := e.Details["resource"].(string)
	return e.Code == "NOT_FOUND" && name == resource
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return errors.Is(err, workspace.ErrNotFound) }

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool { return errors.Is(err, workspace.ErrConflict) }

func decodeError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
