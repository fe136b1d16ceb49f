package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoSources is the fatal precondition: nothing to aggregate.
var ErrNoSources = errors.New("no sources enabled")

// AcquisitionError records a source that failed, timed out or was cancelled.
// The source contributes no records to the run.
type AcquisitionError struct {
	Source   string `json:"source"`
	Platform string `json:"platform"`
	Message  string `json:"message"`
	TimedOut bool   `json:"timed_out,omitempty"`
	Cause    error  `json:"-"`
}

func (e *AcquisitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("acquisition error for %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("acquisition error for %s: %s", e.Source, e.Message)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Cause
}
