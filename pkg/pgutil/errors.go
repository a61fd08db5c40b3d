package pgutil

import (
	"fmt"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
)

// WrapError annotates a query error with msg, tagging connection failures
// with apperrors.ErrUnavailable.
func WrapError(msg string, err error) error {
	if IsConnectionError(err) {
		return apperrors.WrapUnavailable(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
