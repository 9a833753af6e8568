package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/core-admin/backend/internal/db"
)

const nonFieldErrors = "non_field_errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrTokenExpired       = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrNotFound           = errors.New("not found")
	ErrBadRequest         = errors.New("bad request")
	ErrMisconfigured      = errors.New("auth config invalid")
)

// ValidationError carries field-level messages for a rejected request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func newFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// fromValidation turns ozzo validation.Errors into a *ValidationError and
// passes every other error through.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string][]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		fields[field] = append(fields[field], fieldErr.Error())
	}
	return &ValidationError{Fields: fields}
}

// fromStore maps storage errors to service errors. Unique violations become
// field errors in the wording clients of the original API expect.
func fromStore(err error, resource string) error {
	if err == nil {
		return nil
	}
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	var conflict *db.ConflictError
	if errors.As(err, &conflict) {
		return newFieldError(conflict.Field, fmt.Sprintf("A %s with that %s already exists.", resource, strings.ReplaceAll(conflict.Field, "_", " ")))
	}
	return err
}
