package providers

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned when a provider answers without any text.
var ErrEmptyContent = errors.New("empty text content in API response")

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// APIError is a non-success reply from a provider, either an HTTP status or an
// application-level error code carried in a 200 body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// statusError maps a non-200 HTTP status to a typed error.
func statusError(status int, body []byte) error {
	if status == 401 || status == 403 {
		return &authError{message: string(body)}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}
