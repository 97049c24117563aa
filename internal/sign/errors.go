package sign

import (
	"fmt"

	"github.com/juju/errors"
)

// DecodeError is malformed base64 text.
type DecodeError struct {
	Err error
}

func (e DecodeError) Error() string { return "sign image base64: " + e.Err.Error() }

// FormatError is malformed or unexpected container geometry or depth.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string { return "sign image format: " + e.Reason }

func formatErrorf(format string, args ...interface{}) error {
	return FormatError{Reason: fmt.Sprintf(format, args...)}
}

func IsDecodeError(err error) bool {
	_, ok := errors.Cause(err).(DecodeError)
	return ok
}

func IsFormatError(err error) bool {
	_, ok := errors.Cause(err).(FormatError)
	return ok
}
