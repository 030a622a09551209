package main

import (
	"errors"
	"fmt"
)

// ExtractionError means the mandatory feature-description field could not be
// located. It is fatal: the run stops and no sink is invoked. Field names are
// logical field identifiers, never user content, so the error carries no PII.
type ExtractionError struct {
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for field '%s': %s", e.Field, e.Reason)
}

// ErrOutputUnusable is the classifier adapter's signal that the external
// response could not be interpreted as structured data. The orchestrator
// decides whether it triggers a fallback record or a fatal error.
var ErrOutputUnusable = errors.New("classifier output unusable")

// ClassificationError is fatal and only produced in strict mode, where the
// downstream ticket consumer requires a guaranteed-complete document.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// SinkError is reported to the caller but does not invalidate the record the
// pipeline already produced.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink '%s' failed: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func IsClassificationError(err error) bool {
	var ce *ClassificationError
	return errors.As(err, &ce)
}
