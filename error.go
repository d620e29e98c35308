package sift

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	ECONFIG   = "config"
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("sift error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// FetchErrorKind classifies a fetch failure.
type FetchErrorKind string

// Fetch failure kinds.
const (
	// FetchTransient failures (timeouts, 5xx, 429) may succeed on retry.
	FetchTransient FetchErrorKind = "transient"
	// FetchPermanent failures (4xx, malformed URL) never succeed on retry.
	FetchPermanent FetchErrorKind = "permanent"
	// FetchExhausted means every retry attempt failed transiently.
	FetchExhausted FetchErrorKind = "exhausted"
)

// FetchError reports a failure to retrieve a page.
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReasonCode identifies why a candidate or a response was rejected.
type ReasonCode string

// Rejection reasons.
const (
	ReasonMissingField      ReasonCode = "missing_field"
	ReasonTypeMismatch      ReasonCode = "type_mismatch"
	ReasonMalformedResponse ReasonCode = "malformed_response"
	ReasonNotAnObject       ReasonCode = "not_an_object"
	ReasonServiceError      ReasonCode = "service_error"
	ReasonCanceled          ReasonCode = "canceled"
)

// ExtractionError reports that a chunk could not be turned into candidates.
// The chunk is skipped; the surrounding run continues.
type ExtractionError struct {
	URL      string
	Chunk    int
	Attempts int
	Reason   ReasonCode
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %s chunk %d: %s after %d attempt(s)", e.URL, e.Chunk, e.Reason, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ValidationError reports a candidate that does not conform to its schema.
// It is never fatal: the candidate is dropped and the error recorded.
type ValidationError struct {
	Field  string
	Code   ReasonCode
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid record: %s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("invalid record: field %q: %s: %s", e.Field, e.Code, e.Detail)
}

// DeduplicationError reports a stored record that could not take part in a
// deduplication pass. The record is skipped.
type DeduplicationError struct {
	Source string // file, table, or target the record came from
	Index  int    // position of the record (or line) within Source
	Err    error
}

func (e *DeduplicationError) Error() string {
	return fmt.Sprintf("skip record %s#%d: %v", e.Source, e.Index, e.Err)
}

func (e *DeduplicationError) Unwrap() error {
	return e.Err
}

// TransientError marks an extraction service failure that may succeed on retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// IsTransient returns true if err may succeed on retry.
func IsTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchTransient
	}
	var te *TransientError
	return errors.As(err, &te)
}
