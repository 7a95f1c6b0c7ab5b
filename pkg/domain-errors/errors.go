// Package domainerrors is the error vocabulary services return to callers.
// Each Code belongs to exactly one Category; transports map categories to
// status codes and never inspect messages.
package domainerrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInvalidCoordinates Code = "invalid_coordinates"
	CodeInvalidWindow      Code = "invalid_window"

	CodeConflict         Code = "conflict"
	CodeDeviceCapacity   Code = "device_capacity"
	CodeDuplicateDevice  Code = "duplicate_fingerprint"
	CodePrimaryDevice    Code = "primary_device"
	CodeDeviceNotOwned   Code = "device_not_owned"
	CodeAlreadyPending   Code = "already_pending"
	CodeAlreadyResolved  Code = "already_resolved"
	CodeInvalidState     Code = "invalid_state"
	CodeOutsideGeofence  Code = "outside_geofence"
	CodeIdentityInactive Code = "identity_inactive"

	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeUntrustedDevice    Code = "untrusted_device"
	CodeInvalidResponse    Code = "invalid_response"
	CodeCredentialMismatch Code = "credential_mismatch"
	CodeNotEmployed        Code = "not_employed"

	CodeNotFound       Code = "not_found"
	CodeDeviceNotFound Code = "device_not_found"

	CodeExpired          Code = "expired"
	CodeChallengeExpired Code = "challenge_expired"
	CodeLocationExpired  Code = "location_expired"

	CodeInternal Code = "internal_error"
	CodeTimeout  Code = "timeout"
)

// Category groups codes by how callers should react to them.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryConflict     Category = "conflict"
	CategoryUnauthorized Category = "unauthorized"
	CategoryForbidden    Category = "forbidden"
	CategoryNotFound     Category = "not_found"
	CategoryExpired      Category = "expired"
	CategoryInternal     Category = "internal"
)

var categories = map[Code]Category{
	CodeBadRequest:         CategoryValidation,
	CodeValidation:         CategoryValidation,
	CodeInvalidInput:       CategoryValidation,
	CodeInvariantViolation: CategoryValidation,
	CodeInvalidCoordinates: CategoryValidation,
	CodeInvalidWindow:      CategoryValidation,

	CodeConflict:         CategoryConflict,
	CodeDeviceCapacity:   CategoryConflict,
	CodeDuplicateDevice:  CategoryConflict,
	CodePrimaryDevice:    CategoryConflict,
	CodeDeviceNotOwned:   CategoryConflict,
	CodeAlreadyPending:   CategoryConflict,
	CodeAlreadyResolved:  CategoryConflict,
	CodeInvalidState:     CategoryConflict,
	CodeOutsideGeofence:  CategoryConflict,
	CodeIdentityInactive: CategoryConflict,

	CodeUnauthorized:       CategoryUnauthorized,
	CodeUntrustedDevice:    CategoryUnauthorized,
	CodeInvalidResponse:    CategoryUnauthorized,
	CodeCredentialMismatch: CategoryUnauthorized,
	CodeNotEmployed:        CategoryUnauthorized,
	CodeForbidden:          CategoryForbidden,

	CodeNotFound:       CategoryNotFound,
	CodeDeviceNotFound: CategoryNotFound,

	CodeExpired:          CategoryExpired,
	CodeChallengeExpired: CategoryExpired,
	CodeLocationExpired:  CategoryExpired,

	CodeInternal: CategoryInternal,
	CodeTimeout:  CategoryInternal,
}

// Category returns the category of the code; unknown codes are internal.
func (c Code) Category() Category {
	if cat, ok := categories[c]; ok {
		return cat
	}
	return CategoryInternal
}

// Error is a coded domain error. Err is kept for logs and errors.Is chains
// but is never shown to clients.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost domain error from err.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CategoryOf returns the category of err, treating uncoded errors as internal.
func CategoryOf(err error) Category {
	de, ok := As(err)
	if !ok {
		return CategoryInternal
	}
	return de.Code.Category()
}
