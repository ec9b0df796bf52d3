package errs

import (
	"errors"
	"fmt"
)

// RequestFailedError is returned when the backend answers with a
// non-success status.
type RequestFailedError struct {
	StatusCode int
	Detail     string
}

func (v *RequestFailedError) Error() string {
	if v.Detail == "" {
		return fmt.Sprintf("request failed with status %d", v.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", v.StatusCode, v.Detail)
}

func RequestFailedErrorf(statusCode int, format string, args ...any) *RequestFailedError {
	return &RequestFailedError{
		StatusCode: statusCode,
		Detail:     fmt.Sprintf(format, args...),
	}
}

// HasStatus reports whether err carries a RequestFailedError with the
// given status code.
func HasStatus(err error, statusCode int) bool {
	var failed *RequestFailedError
	return errors.As(err, &failed) && failed.StatusCode == statusCode
}

var _ error = &RequestFailedError{}
