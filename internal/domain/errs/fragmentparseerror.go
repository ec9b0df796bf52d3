package errs

import "fmt"

// FragmentParseError describes a stream line that did not decode into a
// message. It never leaves the parser; it exists for logging.
type FragmentParseError struct {
	Line string
	err  error
}

func (v *FragmentParseError) Error() string {
	if v.err == nil {
		return fmt.Sprintf("invalid fragment %q", v.Line)
	}
	return fmt.Sprintf("invalid fragment %q: %v", v.Line, v.err)
}

func (v *FragmentParseError) Unwrap() error {
	return v.err
}

func NewFragmentParseError(line string, err error) *FragmentParseError {
	return &FragmentParseError{Line: line, err: err}
}

var _ error = &FragmentParseError{}
