package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a caller-visible booking failure. The API layer maps kinds
// onto HTTP statuses; raw storage errors never reach the caller.
type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindForbidden        Kind = "Forbidden"
	KindInvalidArgument  Kind = "InvalidArgument"
	KindInvalidInterval  Kind = "InvalidInterval"
	KindDurationExceeded Kind = "DurationExceeded"
	KindTimeConflict     Kind = "TimeConflict"
	KindCapacityExceeded Kind = "CapacityExceeded"
	KindAlreadyCompleted Kind = "AlreadyCompleted"
	KindFacilityDisabled Kind = "FacilityDisabled"
)

// Error is a structured, caller-visible booking error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a kinded error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or "" if err is not a booking error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err is a booking error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
