package errors

import "errors"

var (
	// ErrNotFound covers unknown models as well as unknown, already
	// claimed or expired tasks. The three task cases are
	// indistinguishable to callers, which prevents claim-racing
	// information leaks.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned on submit without an active claim,
	// including a second submit for the same task.
	ErrInvalidState = errors.New("invalid task state")

	// ErrInvalidRange is returned when batch_start >= batch_end or the
	// range exceeds the dataset size.
	ErrInvalidRange = errors.New("invalid batch range")

	// ErrComputation is returned when a forward/backward pass produces
	// a non-finite loss or non-finite gradients.
	ErrComputation = errors.New("computation failed")

	// ErrVerification is returned on a commitment digest mismatch.
	ErrVerification = errors.New("verification failed")

	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")
)
