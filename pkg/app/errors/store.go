package errors

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a storage failure caused by the database being unreachable.
// Stores wrap connection failures with it so services can report a retryable error.
var ErrUnavailable = errors.New("storage unavailable")

// WrapUnavailable returns err annotated with msg and ErrUnavailable.
func WrapUnavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
}

// FromStore converts an unexpected store error into a ServiceError:
// ErrUnavailable becomes a retryable 503, anything else a 500.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, ErrUnavailable) {
		return UnavailableError(err, "storage temporarily unavailable, retry later")
	}
	return GeneralError(err)
}
