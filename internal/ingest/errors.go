package ingest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInProgress is returned when another run holds the source's lock.
var ErrInProgress = errors.New("ingestion already in progress")

// Stage identifies where an ingestion run failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
	StagePersist Stage = "persist"
)

// Error is a failed ingestion run. Err is typically a *feed.Error for the fetch and
// parse stages and a storage error for persist.
type Error struct {
	Stage    Stage
	SourceID uuid.UUID
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest source %s: %s: %v", e.SourceID, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "" when err is not an *Error.
func StageOf(err error) Stage {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Stage
	}
	return ""
}
