package organizer

import "fmt"

// TransportError represents a trigger that never produced a complete HTTP
// exchange: DNS failures, refused connections, timeouts and responses whose
// body was cut short.
type TransportError struct {
	Op  string // "send_request" or "read_response"
	Err error  // Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("organizer transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError represents a complete exchange that was not acknowledged
// because the organizer answered with something other than 200.
type StatusError struct {
	StatusCode int    // HTTP status code returned by the organizer
	Body       string // Leading part of the response body, for logs
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("organizer responded with HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("organizer responded with HTTP %d: %s", e.StatusCode, e.Body)
}
