package providers

import (
	"errors"
	"fmt"
)

// ErrDocumentTooLarge is returned for feed or page bodies larger than the parse limit.
var ErrDocumentTooLarge = errors.New("document exceeds size limit")

// StatusError is returned when a source answers with a non-200 status.
type StatusError struct {
	Code    int
	Snippet string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d body: %s", e.Code, e.Snippet)
}

// SourceError is a transient failure of one source: transport error, timeout, HTTP status or malformed payload.
// It is logged and swallowed by the Collector and never reaches the aggregation loop.
type SourceError struct {
	ProviderID string
	Kind       string
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s (%s): %v", e.ProviderID, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// IsSourceError reports whether err wraps a SourceError.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
