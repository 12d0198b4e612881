package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNotAuthenticated is returned when a request is attempted before a
	// credential has been obtained.
	ErrNotAuthenticated = errors.New("client is not authenticated")

	// ErrMissingAccessToken is returned when the token endpoint answers 2xx
	// without an access_token field.
	ErrMissingAccessToken = errors.New("token response has no access_token")
)

// AuthError is returned when the password grant fails: rejected credentials,
// an unreachable token endpoint or an unusable token response.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("whoop auth error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("whoop auth error (status %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("whoop auth error: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("whoop auth error: %s", e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// HTTPError represents a failed authenticated API call: either a transport
// failure (StatusCode 0, Err set) or a non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	ErrorClass ErrorClass
	// Body holds the beginning of the response body, if any.
	Body string
	Err  error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("whoop %s error: %s %s: %v",
			e.ErrorClass, e.Method, e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("whoop %s error (status %d): %s %s: %s: %s",
			e.ErrorClass, e.StatusCode, e.Method, e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("whoop %s error (status %d): %s %s: %s",
		e.ErrorClass, e.StatusCode, e.Method, e.URL, e.Status)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a response status (or a transport failure when
// statusCode is 0) to an ErrorClass.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 0:
		return ErrorClassNetwork
	case statusCode == 401 || statusCode == 403:
		return ErrorClassAuth
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
