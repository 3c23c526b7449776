package app

import (
	"encoding/json"
	"fmt"
)

// AuthorizationError is returned when the SSO or ESI server rejected a request,
// i.e. responded with a HTTP status of 400 or higher.
type AuthorizationError struct {
	URL        string
	StatusCode int
	Response   map[string]any // parsed error payload. Empty when the body was not JSON.
}

// NewAuthorizationError returns a new AuthorizationError for a response body.
// Bodies which are not a JSON object result in an empty payload.
func NewAuthorizationError(url string, statusCode int, body []byte) *AuthorizationError {
	response := make(map[string]any)
	if err := json.Unmarshal(body, &response); err != nil || response == nil {
		response = make(map[string]any)
	}
	return &AuthorizationError{URL: url, StatusCode: statusCode, Response: response}
}

func (e *AuthorizationError) Error() string {
	if v, ok := e.Response["error"]; ok {
		return fmt.Sprintf("HTTP Error %d: %v", e.StatusCode, v)
	}
	if v, ok := e.Response["message"]; ok {
		return fmt.Sprintf("HTTP Error %d: %v", e.StatusCode, v)
	}
	return fmt.Sprintf("HTTP Error %d", e.StatusCode)
}
