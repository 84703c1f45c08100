package nbastats

import "fmt"

// TransientError marks a failure worth retrying: network errors, rate
// limiting, and 5xx-class responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient provider error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a request/response defect that retrying cannot fix:
// 4xx-class responses other than rate limiting, or a malformed request.
// Retrying these would burn quota for nothing, so the fetcher never does.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent provider error: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is returned after the retry budget is spent. It
// carries the last underlying error.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }
