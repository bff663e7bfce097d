package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput                = "ACCOUNTLINK_BAD_INPUT"
	ErrorNotFound                = "ACCOUNTLINK_NOT_FOUND"
	ErrorIntegrityViolation      = "ACCOUNTLINK_INTEGRITY_VIOLATION"
	ErrorBackingStoreUnavailable = "ACCOUNTLINK_BACKING_STORE_UNAVAILABLE"
	ErrorInternal                = "ACCOUNTLINK_INTERNAL_ERROR"
)

var (
	ErrInvalidInput            = errors.New("accountlink: invalid input")
	ErrNotFound                = errors.New("accountlink: not found")
	ErrIntegrityViolation      = errors.New("accountlink: integrity violation")
	ErrBackingStoreUnavailable = errors.New("accountlink: backing store unavailable")
)

// ServiceError is implemented by errors that carry their own go-errors envelope.
type ServiceError interface {
	error
	ToServiceError() *goerrors.Error
}

type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return ErrInvalidInput.Error()
	}
	return ErrInvalidInput.Error() + ": " + e.Message
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func (e *InvalidInputError) ToServiceError() *goerrors.Error {
	field, message := "", ErrInvalidInput.Error()
	if e != nil {
		field, message = e.Field, e.Message
	}
	return goerrors.NewValidation("accountlink: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func invalidInput(field string, message string) error {
	return &InvalidInputError{Field: field, Message: message}
}

// NotFoundError reports a reverse lookup with no linked platform user.
type NotFoundError struct {
	RemoteInstance string
	RemoteUserID   string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ErrNotFound.Error()
	}
	if e.RemoteInstance != "" {
		return fmt.Sprintf("%s: remote user %q on %q has no linked platform user",
			ErrNotFound.Error(), e.RemoteUserID, e.RemoteInstance)
	}
	return fmt.Sprintf("%s: remote user %q has no linked platform user", ErrNotFound.Error(), e.RemoteUserID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func (e *NotFoundError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{}
	if e != nil {
		metadata["remote_user_id"] = e.RemoteUserID
		if e.RemoteInstance != "" {
			metadata["remote_instance"] = e.RemoteInstance
		}
	}
	return goerrors.New(e.Error(), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorNotFound).
		WithMetadata(metadata)
}

// IntegrityViolationError reports a constraint failure that a benign race
// cannot explain.
type IntegrityViolationError struct {
	Op    string
	Cause error
}

func (e *IntegrityViolationError) Error() string {
	if e == nil {
		return ErrIntegrityViolation.Error()
	}
	message := ErrIntegrityViolation.Error()
	if e.Op != "" {
		message += " during " + e.Op
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *IntegrityViolationError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrIntegrityViolation
	}
	return errors.Join(ErrIntegrityViolation, e.Cause)
}

func (e *IntegrityViolationError) ToServiceError() *goerrors.Error {
	op := ""
	if e != nil {
		op = e.Op
	}
	return goerrors.New(e.Error(), goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorIntegrityViolation).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(map[string]any{"operation": op})
}

// BackingStoreError reports a connection or transaction failure. Callers own
// the retry policy.
type BackingStoreError struct {
	Op    string
	Cause error
}

func (e *BackingStoreError) Error() string {
	if e == nil {
		return ErrBackingStoreUnavailable.Error()
	}
	message := ErrBackingStoreUnavailable.Error()
	if e.Op != "" {
		message += " during " + e.Op
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *BackingStoreError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrBackingStoreUnavailable
	}
	return errors.Join(ErrBackingStoreUnavailable, e.Cause)
}

func (e *BackingStoreError) ToServiceError() *goerrors.Error {
	op := ""
	if e != nil {
		op = e.Op
	}
	return goerrors.New(e.Error(), goerrors.CategoryExternal).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorBackingStoreUnavailable).
		WithMetadata(map[string]any{"operation": op})
}

func NewIntegrityViolation(op string, cause error) error {
	return &IntegrityViolationError{Op: op, Cause: cause}
}

func NewBackingStoreError(op string, cause error) error {
	return &BackingStoreError{Op: op, Cause: cause}
}

func NewNotFound(remoteInstance string, remoteUserID string) error {
	return &NotFoundError{RemoteInstance: remoteInstance, RemoteUserID: remoteUserID}
}

// MapError converts any error into a go-errors envelope with an accountlink
// text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return ensureErrorEnvelope(serviceErr.ToServiceError())
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryExternal:
		return ErrorBackingStoreUnavailable
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	return matchesKind(err, ErrNotFound, ErrorNotFound)
}

func IsIntegrityViolation(err error) bool {
	return matchesKind(err, ErrIntegrityViolation, ErrorIntegrityViolation)
}

func IsBackingStoreUnavailable(err error) bool {
	return matchesKind(err, ErrBackingStoreUnavailable, ErrorBackingStoreUnavailable)
}

func IsInvalidInput(err error) bool {
	return matchesKind(err, ErrInvalidInput, ErrorBadInput)
}

// matchesKind accepts both raw typed errors and mapped go-errors envelopes.
func matchesKind(err error, sentinel error, textCode string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sentinel) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode == textCode
	}
	return false
}
