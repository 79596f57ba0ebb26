package session

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by document operations before a successful Load.
var ErrNotLoaded = errors.New("session: document not loaded")

// LoadError means the baseline could not be fetched or parsed, or the
// override slot could not be read. The session keeps whatever document it
// had before the failed Load.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// OverrideParseError means a persisted override exists but is not a valid
// document. Load recovers by using the baseline alone.
type OverrideParseError struct {
	Slot    string
	Version int
	Err     error
}

func (e *OverrideParseError) Error() string {
	return fmt.Sprintf("override %s@%d is malformed: %v", e.Slot, e.Version, e.Err)
}

func (e *OverrideParseError) Unwrap() error {
	return e.Err
}
