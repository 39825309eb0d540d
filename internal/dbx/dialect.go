package dbx

import "regexp"

// Dialect identifies the SQL flavour behind a *sql.DB. Repositories are written
// against PostgreSQL and rebound for SQLite at construction time.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $n placeholders into the dialect's native form.
// Each placeholder must occur once and in ascending order.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// ForUpdate returns the row locking clause appended to SELECTs that precede a
// write in the same transaction. SQLite serializes writers on its own.
func (d Dialect) ForUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}
