// internal/pkg/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and for the HTTP boundary
type Kind string

const (
	KindProductNotFound   Kind = "product_not_found"
	KindItemNotFound      Kind = "item_not_found"
	KindCartNotFound      Kind = "cart_not_found"
	KindOrderNotFound     Kind = "order_not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindEmptyCart         Kind = "empty_cart"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindValidation        Kind = "validation_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindPersistence       Kind = "persistence_failure"
	KindDataInconsistency Kind = "data_inconsistency"
)

// Error is the application error type returned by domain services
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks
var (
	ErrProductNotFound   = &Error{Kind: KindProductNotFound}
	ErrItemNotFound      = &Error{Kind: KindItemNotFound}
	ErrCartNotFound      = &Error{Kind: KindCartNotFound}
	ErrOrderNotFound     = &Error{Kind: KindOrderNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrPersistence       = &Error{Kind: KindPersistence}
	ErrDataInconsistency = &Error{Kind: KindDataInconsistency}
)

// New creates an error of the given kind with a formatted message
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func ProductNotFound(productID uint) *Error {
	return New(KindProductNotFound, "product %d not found", productID)
}

func InsufficientStock(productName string, available, requested int) *Error {
	return New(KindInsufficientStock, "insufficient stock for %s: %d available, %d requested", productName, available, requested)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// Persistence wraps a storage failure
func Persistence(err error, op string) *Error {
	return Wrap(KindPersistence, err, "failed to %s", op)
}

// KindOf returns the kind of err, or KindPersistence for unclassified errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindProductNotFound, KindItemNotFound, KindCartNotFound, KindOrderNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindEmptyCart, KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
