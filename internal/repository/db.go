package repository

import (
	"errors"

	"evo-store/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOrderNumberTaken is returned by CreateOrder when the generated order
// number collides with an existing one.
var ErrOrderNumberTaken = errors.New("order number already exists")

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// statusStrings converts statuses for use with = ANY($n).
func statusStrings(statuses []model.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// clampLimit keeps page sizes within [1, max], defaulting to def.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
