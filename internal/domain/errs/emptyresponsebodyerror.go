package errs

import "fmt"

type EmptyResponseBodyError struct {
	message string
}

func (v *EmptyResponseBodyError) Error() string {
	return v.message
}

func EmptyResponseBodyErrorf(format string, args ...any) *EmptyResponseBodyError {
	return &EmptyResponseBodyError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &EmptyResponseBodyError{}
