package order

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Additional-Code/menumate/internal/backend"
)

// classify maps driver errors onto the backend error classes, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var class error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		class = backend.ErrTimeout
	case errors.Is(err, driver.ErrBadConn):
		class = backend.ErrUnavailable
	default:
		if code := sqlState(err); code != "" {
			class = classifySQLState(code)
		} else if number, ok := mysqlNumber(err); ok {
			class = classifyMySQL(number)
		}
	}
	if class == nil {
		class = backend.ErrUnavailable
	}
	return fmt.Errorf("%w: %w", class, err)
}

func sqlState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	return ""
}

func classifySQLState(code string) error {
	switch {
	case code == "42501":
		return backend.ErrPermissionDenied
	case code == "42883":
		// undefined_function: the atomic procedure is not installed
		return backend.ErrUnsupported
	case code == "57014":
		return backend.ErrTimeout
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"):
		return backend.ErrUnavailable
	default:
		return nil
	}
}

func mysqlNumber(err error) (uint16, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number, true
	}
	return 0, false
}

func classifyMySQL(number uint16) error {
	switch number {
	case 1044, 1045, 1142, 1143:
		return backend.ErrPermissionDenied
	case 1305:
		return backend.ErrUnsupported
	case 3024, 1205:
		return backend.ErrTimeout
	default:
		return nil
	}
}
