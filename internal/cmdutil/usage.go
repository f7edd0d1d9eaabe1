package cmdutil

import "errors"

// UsageError marks a usage or configuration error (exit 2).
type UsageError struct {
	Msg string // Optional context printed before Err.
	Err error
}

func (e *UsageError) Error() string {
	switch {
	case e.Msg == "":
		return e.Err.Error()
	case e.Err == nil:
		return e.Msg
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *UsageError) Unwrap() error { return e.Err }

// Usage wraps err as a UsageError. A nil err stays nil.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// IsUsage reports whether err is a UsageError (directly or wrapped).
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
