package gemini

import "fmt"

// TransportError wraps failures that happened before a response body was read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "gemini: request failed: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// NonJSONError is returned when the response body is not valid JSON. Raw keeps the body.
type NonJSONError struct {
	StatusCode int
	Raw        string
}

func (e *NonJSONError) Error() string {
	return fmt.Sprintf("gemini: status %d with non-JSON body", e.StatusCode)
}

// NoImageError is returned when the response is JSON but carries no recognised image,
// including error payloads sent with non-2xx statuses. Response is the decoded body.
type NoImageError struct {
	StatusCode int
	Response   any
}

func (e *NoImageError) Error() string {
	return fmt.Sprintf("gemini: status %d without image payload", e.StatusCode)
}
