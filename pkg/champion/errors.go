package champion

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by Feed when given an empty nickname.
	ErrEmptyInput = errors.New("champion: empty nickname")
	// ErrNoData is returned by Gen when the champion has never been fed.
	ErrNoData = errors.New("champion: no data available")
	// ErrInvariantViolation is matched by every InvariantError.
	ErrInvariantViolation = errors.New("champion: transition table invariant violated")
	// ErrMalformedSnapshot is matched by every SnapshotError.
	ErrMalformedSnapshot = errors.New("champion: malformed snapshot")
)

// InvariantError reports that generation reached a character with no
// outgoing transitions, which a table built through Feed never contains.
type InvariantError struct {
	Char rune
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("champion: no transitions from %q", e.Char)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// SnapshotError describes why a snapshot could not be decoded.
type SnapshotError struct {
	Reason string
	Err    error
}

func (e *SnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("champion: malformed snapshot: %s: %v", e.Reason, e.Err)
	}
	return "champion: malformed snapshot: " + e.Reason
}

func (e *SnapshotError) Is(target error) bool {
	return target == ErrMalformedSnapshot
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}
