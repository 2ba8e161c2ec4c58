package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel kinds for repository setup errors.
var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrNilDB         = errors.New("nil database handle")
)

// isUniqueViolation reports a duplicate key from either a translated gorm
// error or a raw Postgres error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
