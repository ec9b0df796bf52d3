package errs

import "fmt"

type AlreadyRunningError struct {
	message string
}

func (v *AlreadyRunningError) Error() string {
	return v.message
}

func AlreadyRunningErrorf(format string, args ...any) *AlreadyRunningError {
	return &AlreadyRunningError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &AlreadyRunningError{}
