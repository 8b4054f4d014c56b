package episode

import (
	"errors"
	"fmt"
)

// DanglingReferenceError is returned when a step's previous id matches no
// step of its episode, or when steps form a cycle unreachable from any root.
type DanglingReferenceError struct {
	EpisodeID  string
	EventID    string
	PreviousID string
	// Cycle is set when the reference exists but is not reachable from a root.
	Cycle bool
}

func (e *DanglingReferenceError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("episode %q: step %q is part of a cycle through %q", e.EpisodeID, e.EventID, e.PreviousID)
	}
	return fmt.Sprintf("episode %q: step %q references unknown previous step %q", e.EpisodeID, e.EventID, e.PreviousID)
}

// DuplicateStepError is returned when two steps of an episode share an event id.
type DuplicateStepError struct {
	EpisodeID string
	EventID   string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("episode %q: duplicate step %q", e.EpisodeID, e.EventID)
}

// IsDanglingReferenceError returns true if err is or wraps *DanglingReferenceError.
func IsDanglingReferenceError(err error) bool {
	var target *DanglingReferenceError
	return errors.As(err, &target)
}
