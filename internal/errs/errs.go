// Package errs declares the error kinds shared by the display packages.
// Callers test for them with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidConfiguration reports a setting outside its valid range, such as a
	// non-positive zoom.
	ErrInvalidConfiguration = errors.New("display: invalid configuration")

	// ErrInvalidParameter reports an invalid argument, such as a non-positive grip radius.
	ErrInvalidParameter = errors.New("display: invalid parameter")

	// ErrUnbalancedScope reports a resume without a matching suspend.
	ErrUnbalancedScope = errors.New("display: unbalanced scope")

	// ErrPermissionDenied reports an operation refused by the security manager.
	ErrPermissionDenied = errors.New("display: permission denied")

	// ErrPreconditionFailed reports an operation that needs state the display does not have,
	// typically a diagram.
	ErrPreconditionFailed = errors.New("display: precondition failed")
)
