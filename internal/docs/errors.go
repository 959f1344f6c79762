package docs

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that no plausible match or no relevant content exists.
// User-visible and never retried.
type NotFoundError struct {
	Subject string // the library name or identifier that produced no result
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("docs: no result for %q", e.Subject)
}

// AmbiguousMatchError reports that several canonical identifiers match the
// given name equally well. Surfaced to the user as a clarification request.
type AmbiguousMatchError struct {
	Name       string
	Candidates []ResolvedLibrary
}

func (e *AmbiguousMatchError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, c.ID)
	}
	return fmt.Sprintf("docs: %q is ambiguous between %s", e.Name, strings.Join(names, ", "))
}

// UpstreamUnavailableError wraps a transport failure to the documentation
// backend. Transient: retried a bounded number of times.
type UpstreamUnavailableError struct {
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("docs: backend unavailable: %v", e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt. Only upstream
// unavailability qualifies; NotFound and AmbiguousMatch are terminal.
func IsRetryable(err error) bool {
	var ue *UpstreamUnavailableError
	return errors.As(err, &ue)
}
