package errs

import "fmt"

// RefreshFailedError wraps a failure to reload a thread's history after a
// stream completed.
type RefreshFailedError struct {
	ThreadID string
	err      error
}

func (v *RefreshFailedError) Error() string {
	return fmt.Sprintf("failed to refresh history for thread %s: %v", v.ThreadID, v.err)
}

func (v *RefreshFailedError) Unwrap() error {
	return v.err
}

func NewRefreshFailedError(threadID string, err error) *RefreshFailedError {
	return &RefreshFailedError{ThreadID: threadID, err: err}
}

var _ error = &RefreshFailedError{}
