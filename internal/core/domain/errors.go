package domain

import (
	"errors"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateName is returned by the account store when a name is already taken.
	ErrDuplicateName = errors.New("account name already exists")
	// ErrOutOfRange is returned when an amount or balance does not fit NUMERIC(18,2).
	ErrOutOfRange = errors.New("amount out of range")
)

// FailureKind enumerates the caller-input failures of provisioning and transfers.
// They are deterministic and never retried.
type FailureKind int

const (
	FailureNegativeBalance FailureKind = iota + 1
	FailureTooManyDecimalPlaces
	FailureNonPositiveAmount
	FailureSenderNotFound
	FailureReceiverNotFound
	FailureSameAccount
	FailureInsufficientBalance
)

// Code is the stable wire identifier of the kind.
func (k FailureKind) Code() string {
	switch k {
	case FailureNegativeBalance:
		return "NEGATIVE_ACCOUNT_BALANCE"
	case FailureTooManyDecimalPlaces:
		return "MORE_THAN_TWO_DECIMAL_PLACES"
	case FailureNonPositiveAmount:
		return "NOT_POSITIVE_PAYMENT_AMOUNT"
	case FailureSenderNotFound:
		return "SENDER_ACCOUNT_NOT_FOUND"
	case FailureReceiverNotFound:
		return "RECEIVER_ACCOUNT_NOT_FOUND"
	case FailureSameAccount:
		return "SENDER_RECEIVER_THE_SAME"
	case FailureInsufficientBalance:
		return "SENDER_ACCOUNT_BALANCE_GOING_NEGATIVE"
	default:
		return "UNKNOWN_FAILURE"
	}
}

// Message is the fixed human-readable explanation of the kind.
func (k FailureKind) Message() string {
	switch k {
	case FailureNegativeBalance:
		return "Account balance cannot be negative"
	case FailureTooManyDecimalPlaces:
		return "Payment amount input can have 2 decimal places"
	case FailureNonPositiveAmount:
		return "Payment amount cannot be negative or zero"
	case FailureSenderNotFound:
		return "Sender account could not be found"
	case FailureReceiverNotFound:
		return "Receiver account could not be found"
	case FailureSameAccount:
		return "Sender account and receiver account are the same (have the same ID)"
	case FailureInsufficientBalance:
		return "A payment cannot make the sender account's balance drop to below zero"
	default:
		return "Unknown failure"
	}
}

func (k FailureKind) String() string { return k.Code() }

// Failure is a validation failure: a kind plus its fixed message.
type Failure struct {
	Kind    FailureKind
	Message string
}

// Fail builds the Failure for kind.
func Fail(kind FailureKind) *Failure {
	return &Failure{Kind: kind, Message: kind.Message()}
}

func (f *Failure) Error() string {
	return f.Message
}

// Is lets errors.Is compare failures by kind.
func (f *Failure) Is(target error) bool {
	var other *Failure
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == f.Kind
}

// AsFailure extracts the Failure carried by err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
