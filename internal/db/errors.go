package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("record not found")

// ConflictError reports a unique constraint violation on Field.
type ConflictError struct {
	Table string
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s.%s already exists", e.Table, e.Field)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// MissingReferenceError reports an id that does not exist in Table.
type MissingReferenceError struct {
	Table string
	ID    int64
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s %d does not exist", e.Table, e.ID)
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

// translate maps driver errors onto the package's error values.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &ConflictError{
			Table: pgErr.TableName,
			Field: constraintField(pgErr.TableName, pgErr.ConstraintName),
			Err:   err,
		}
	}
	return err
}

// constraintField recovers the column from Postgres' default unique
// constraint name, "<table>_<column>_key".
func constraintField(table, constraint string) string {
	field := strings.TrimSuffix(constraint, "_key")
	field = strings.TrimPrefix(field, table+"_")
	return field
}
