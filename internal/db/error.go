package db

import "errors"

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// InvalidDocumentError is returned when a stored document cannot be decoded
// into a ledger record
type InvalidDocumentError struct {
	Key     string
	Message string
}

func (e *InvalidDocumentError) Error() string {
	return e.Message
}

func IsInvalidDocumentError(err error) bool {
	var target *InvalidDocumentError
	return errors.As(err, &target)
}
