package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return hasCode(err, "23505") // unique_violation
}

// isUndefinedTable verifica si un error es 42P01 (relación inexistente, incluye secuencias).
func isUndefinedTable(err error) bool {
	return hasCode(err, "42P01") // undefined_table
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
