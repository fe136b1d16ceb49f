package syncer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by status operations on an unknown id.
var ErrRecordNotFound = errors.New("record not found")

// SyncError is a persistence failure for one record. It is counted in
// Stats and never aborts the batch.
type SyncError struct {
	Index          int    `json:"index"`
	SourcePlatform string `json:"source_platform"`
	SourceID       string `json:"source_id"`
	Op             string `json:"op"`
	Message        string `json:"message"`
	Cause          error  `json:"-"`
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync error for %s/%s (%s): %s", e.SourcePlatform, e.SourceID, e.Op, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// AuditError reports audit entries that could not be written after a user
// edit was stored. The edit itself is not rolled back.
type AuditError struct {
	RecordID uuid.UUID
	Actions  []string
	Causes   []error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("record %s updated but audit entries failed (%s): %v",
		e.RecordID, strings.Join(e.Actions, ", "), errors.Join(e.Causes...))
}

func (e *AuditError) Unwrap() []error {
	return e.Causes
}
