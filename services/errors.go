package services

import (
	"errors"
	"fmt"
)

// Client errors. Nothing in the session changes when one of these is returned.
var (
	ErrNotIndexed       = errors.New("no report indexed yet")
	ErrNoQuiz           = errors.New("no quiz has been generated for the current report")
	ErrQuestionNotFound = errors.New("question not found in the current quiz")
	ErrStaleQuiz        = errors.New("quiz was generated for a report that is no longer indexed")
	ErrInvalidUpload    = errors.New("only PDF files allowed")
	ErrEmptyQuestion    = errors.New("question must not be empty")
)

// ExtractionError means the uploaded bytes could not be turned into text.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed: " + e.Reason
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexBuildError means chunking or embedding failed, or produced nothing.
type IndexBuildError struct {
	Reason string
	Err    error
}

func (e *IndexBuildError) Error() string {
	if e.Err == nil {
		return "index build failed: " + e.Reason
	}
	return fmt.Sprintf("index build failed: %s: %v", e.Reason, e.Err)
}

func (e *IndexBuildError) Unwrap() error { return e.Err }

// ModelCallError wraps a failed language model call after retries.
type ModelCallError struct {
	Task     string
	Attempts int
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call for %s failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// ParseValidationError reports model output that does not match the expected shape.
type ParseValidationError struct {
	Task string
	Kind ExtractionKind
	Err  error
}

func (e *ParseValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: model output is %s", e.Task, e.Kind)
	}
	return fmt.Sprintf("%s: model output is %s: %v", e.Task, e.Kind, e.Err)
}

func (e *ParseValidationError) Unwrap() error { return e.Err }

// IsClientError reports whether err should be answered with a 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotIndexed) ||
		errors.Is(err, ErrNoQuiz) ||
		errors.Is(err, ErrInvalidUpload) ||
		errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrStaleQuiz)
}
