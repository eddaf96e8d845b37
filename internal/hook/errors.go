package hook

import "fmt"

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int   // Number of attempts made
	Last     error // Failure of the final attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("organizer did not acknowledge after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
