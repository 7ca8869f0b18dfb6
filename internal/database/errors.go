package database

import (
	"errors"
	"log/slog"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"tecnomadas-portal/internal/apperr"
)

// MySQL error numbers for integrity violations
const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced  = 1451
	pgIntegrityErrorClass = "23"
)

// Classify turns a store error into a tagged error and logs it once.
// what names the operation, e.g. "get property".
func Classify(err error, what string, attrs ...any) error {
	if err == nil {
		return nil
	}
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, what+": not found", err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == pgIntegrityErrorClass {
		slog.Warn("constraint violation", append(attrs, "op", what, "code", string(pqErr.Code), "error", err)...)
		return apperr.Wrap(apperr.KindValidation, what+": constraint violation", err)
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlNoReferencedRow, mysqlRowIsReferenced:
			slog.Warn("constraint violation", append(attrs, "op", what, "code", myErr.Number, "error", err)...)
			return apperr.Wrap(apperr.KindValidation, what+": constraint violation", err)
		}
	}

	slog.Error("store operation failed", append(attrs, "op", what, "error", err)...)
	return apperr.Wrap(apperr.KindUnavailable, what+": data store unavailable", err)
}
