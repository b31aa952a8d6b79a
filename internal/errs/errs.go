// Package errs holds the error kinds shared by the ledger, wallet and subscription services.
//
// Structured errors unwrap to a sentinel so callers only need errors.Is:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoMainWallet      = errors.New("no main wallet")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError reports a rejected intent, e.g. a missing wallet reference.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the kind of entity that could not be resolved.
type NotFoundError struct {
	Kind string // "transaction", "wallet", "subscription"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound is shorthand for a NotFoundError.
func NotFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// InsufficientFundsError is produced by the caller-side balance guard, never by the engine.
type InsufficientFundsError struct {
	WalletID   string
	WalletName string
	Available  decimal.Decimal
	Required   decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %q: available %s, required %s",
		e.WalletName, e.Available.StringFixed(2), e.Required.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// PersistenceError wraps a store failure. The wrapped error is kept for logging
// but must not be shown to clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Persistence wraps err unless it is already a domain error or nil.
func Persistence(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}

	return &PersistenceError{Op: op, Err: err}
}

// IsDomain reports whether err carries one of the client-facing kinds.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNoMainWallet)
}
