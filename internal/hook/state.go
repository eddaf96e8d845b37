package hook

import (
	"fmt"
	"net/http"
	"time"
)

// State of a notification run.
//
//	PENDING -> ATTEMPTING(n) -> ACKNOWLEDGED
//	                         -> ATTEMPTING(n+1)   (n < max)
//	                         -> EXHAUSTED         (n == max)
type State int

const (
	StatePending State = iota
	StateAttempting
	StateAcknowledged
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateAcknowledged:
		return "acknowledged"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further attempt can follow.
func (s State) Terminal() bool {
	return s == StateAcknowledged || s == StateExhausted
}

// Event is the completed download that triggered the hook. Every field is
// opaque and only used for logging and correlation.
type Event struct {
	Dir  string
	Name string
	ID   string
	Hash string
}

// Attempt is the observed outcome of one trigger.
type Attempt struct {
	Ordinal    int
	StatusCode int // 0 when no response was received
	Err        error
	Duration   time.Duration
	Delay      time.Duration // wait before the next attempt, 0 if none followed
}

// Acknowledged reports whether the organizer accepted the trigger.
func (a Attempt) Acknowledged() bool {
	return a.Err == nil && a.StatusCode == http.StatusOK
}

// Result summarizes a notification run.
type Result struct {
	RequestID string
	State     State
	Attempts  []Attempt
}

// Acknowledged reports whether the run ended in StateAcknowledged.
func (r *Result) Acknowledged() bool {
	return r != nil && r.State == StateAcknowledged
}
