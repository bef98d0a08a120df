package eq

import (
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of an application request
type Outcome int

const (
	// FailedAllMethods means every attempted method errored
	FailedAllMethods Outcome = iota
	// RejectedNotFound means the preset is not in the catalog; nothing was attempted
	RejectedNotFound
	// AppliedUnconfirmed means a method completed but its effect cannot be observed
	AppliedUnconfirmed
	// AppliedConfirmed means a definitive method or the resync path completed
	AppliedConfirmed
)

// String returns a human-readable representation of the Outcome
func (o Outcome) String() string {
	switch o {
	case AppliedConfirmed:
		return "applied-confirmed"
	case AppliedUnconfirmed:
		return "applied-unconfirmed"
	case RejectedNotFound:
		return "rejected-not-found"
	case FailedAllMethods:
		return "failed-all-methods"
	default:
		return "unknown"
	}
}

// Applied reports whether the outcome counts as a success
func (o Outcome) Applied() bool {
	return o == AppliedConfirmed || o == AppliedUnconfirmed
}

// better returns the stronger of two outcomes
func better(a, b Outcome) Outcome {
	if b > a {
		return b
	}
	return a
}

// Method identifies one way of applying a preset
type Method int

const (
	MethodNone     Method = iota
	MethodProperty        // gsettings key
	MethodBus             // D-Bus load_preset
	MethodFile            // current preset file + reload signals
	MethodResync          // config rewrite + (re)start + reissue
)

// String returns a human-readable representation of the Method
func (m Method) String() string {
	switch m {
	case MethodProperty:
		return "property"
	case MethodBus:
		return "bus"
	case MethodFile:
		return "file"
	case MethodResync:
		return "resync"
	default:
		return "none"
	}
}

// MethodResult records a single method attempt
type MethodResult struct {
	Method  Method
	Outcome Outcome
	Err     error
}

// Record is the most recent application attempt
type Record struct {
	Preset  string
	At      time.Time
	Method  Method
	Outcome Outcome
}

// IsZero reports whether nothing has been attempted yet
func (r Record) IsZero() bool {
	return r.Preset == "" && r.At.IsZero()
}

// Result is returned by Applier.Apply
type Result struct {
	Preset  string
	Outcome Outcome
	Forced  bool
	Methods []MethodResult
}

// Attempted reports whether method m ran
func (r Result) Attempted(m Method) bool {
	for _, mr := range r.Methods {
		if mr.Method == m {
			return true
		}
	}
	return false
}

var (
	// ErrPresetNotFound is reported for RejectedNotFound outcomes
	ErrPresetNotFound = errors.New("preset not found")

	// ErrAllMethodsFailed is reported for FailedAllMethods outcomes
	ErrAllMethodsFailed = errors.New("all methods failed")
)

// Err converts a failed or rejected result into an error, nil otherwise
func (r Result) Err() error {
	switch r.Outcome {
	case RejectedNotFound:
		return fmt.Errorf("%w: %q", ErrPresetNotFound, r.Preset)
	case FailedAllMethods:
		errs := []error{ErrAllMethodsFailed}
		for _, mr := range r.Methods {
			if mr.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", mr.Method, mr.Err))
			}
		}
		return fmt.Errorf("apply %q: %w", r.Preset, errors.Join(errs...))
	default:
		return nil
	}
}
