package ledger

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/Check rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	// KindConstraintViolation covers signer, writability and derived-address
	// mismatches, and runtime privilege violations.
	KindConstraintViolation Kind = "ConstraintViolation"
	// KindAlreadyInitialized means a target account already has state.
	KindAlreadyInitialized Kind = "AlreadyInitialized"
	// KindInsufficientFunds covers fees, rent and transfers the payer cannot cover.
	KindInsufficientFunds Kind = "InsufficientFunds"
	// KindPayloadTooLarge means a registry field exceeds its maximum byte length.
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	// KindAuthorityMismatch means an operation was attempted by an identity
	// other than the recorded authority.
	KindAuthorityMismatch Kind = "AuthorityMismatch"
	// KindMalformed covers requests the runtime or a program cannot interpret:
	// missing or reordered accounts, bad instruction data, unknown programs.
	KindMalformed Kind = "Malformed"
	// KindInvalidAccountData means an account's contents are not what the
	// owning program expects.
	KindInvalidAccountData Kind = "InvalidAccountData"
	KindOverflow           Kind = "Overflow"
	// KindAlreadyProcessed rejects a transaction whose signature was committed before.
	KindAlreadyProcessed Kind = "AlreadyProcessed"
	KindInternal         Kind = "Internal"
)

// Error is the ledger's structured error type.
//
// Check is a stable identifier naming the violated rule (e.g.
// "nft.metadata.address", "token.mint_to.authority"). Step names the
// orchestration step that surfaced the error, when there is one.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Check   string
	Step    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error.
func NewError(kind Kind, check, msg string) error {
	return &Error{Kind: kind, Check: check, Message: msg}
}

// Errorf returns a structured error with a formatted message.
func Errorf(kind Kind, check, format string, args ...any) error {
	return &Error{Kind: kind, Check: check, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns a structured error carrying cause.
func WrapError(kind Kind, check, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, check, msg)
	}
	return &Error{Kind: kind, Check: check, Message: fmt.Sprintf("%s: %v", msg, cause), Cause: cause}
}

// WithStep annotates err with the orchestration step that surfaced it.
//
// Structured errors keep their Kind and Check; a step already recorded by a
// nested call is preserved. Unstructured errors become KindInternal.
func WithStep(err error, step string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindInternal, Check: "internal", Step: step, Message: err.Error(), Cause: err}
	}
	if e.Step != "" {
		return err
	}
	annotated := *e
	annotated.Step = step
	return &annotated
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// CheckOf returns the stable Check identifier for a structured error, or "".
func CheckOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Check
}

// StepOf returns the orchestration step recorded on a structured error, or "".
func StepOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Step
}
