package staking

import (
	"errors"
)

type ErrorCode string

const (
	CodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	CodeNoStake            ErrorCode = "NO_STAKE"
	CodeClaimTooSoon       ErrorCode = "CLAIM_TOO_SOON"
	CodeNotOwner           ErrorCode = "NOT_OWNER"
	CodeTransferFailed     ErrorCode = "TRANSFER_FAILED"
	CodeArithmeticOverflow ErrorCode = "ARITHMETIC_OVERFLOW"
)

// Error is a staking failure with a stable code and message. Two errors match
// under errors.Is when their codes are equal.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInvalidAmount        = &Error{Code: CodeInvalidAmount, Message: "Amount must be > 0"}
	ErrInvalidUnstakeAmount = &Error{Code: CodeInvalidAmount, Message: "Invalid amount"}
	ErrNoStake              = &Error{Code: CodeNoStake, Message: "No stake"}
	ErrClaimTooSoon         = &Error{Code: CodeClaimTooSoon, Message: "Claim available once per 24h"}
	ErrNotOwner             = &Error{Code: CodeNotOwner, Message: "Not owner"}
	ErrTransferFailed       = &Error{Code: CodeTransferFailed, Message: "Transfer failed"}
	ErrArithmeticOverflow   = &Error{Code: CodeArithmeticOverflow, Message: "Arithmetic overflow"}
)

func transferFailed(err error) error {
	return &Error{Code: CodeTransferFailed, Message: ErrTransferFailed.Message, Err: err}
}

// Code returns the error code carried by err, or an empty code for errors
// that did not originate in the engine.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsInvalidAmountError(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

func IsNoStakeError(err error) bool {
	return errors.Is(err, ErrNoStake)
}

func IsClaimTooSoonError(err error) bool {
	return errors.Is(err, ErrClaimTooSoon)
}

func IsNotOwnerError(err error) bool {
	return errors.Is(err, ErrNotOwner)
}

func IsTransferFailedError(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}
