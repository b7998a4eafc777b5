package analysis

import (
	"context"
	"errors"
	"fmt"
)

// classifiedError tags an analyzer failure with a kind the queue records
// alongside the message.
type classifiedError struct {
	kind string
	err  error
}

func (e *classifiedError) Error() string { return e.err.Error() }

func (e *classifiedError) Unwrap() error { return e.err }

func (e *classifiedError) ErrorKind() string { return e.kind }

// SourceMissing marks failures where the media bytes could not be read.
func SourceMissing(err error) error {
	return &classifiedError{kind: "source_missing", err: err}
}

// AnalyzerFailed marks inspection failures, distinguishing timeouts.
func AnalyzerFailed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &classifiedError{kind: "timeout", err: fmt.Errorf("analysis timed out: %w", err)}
	}
	return &classifiedError{kind: "analyzer", err: err}
}
