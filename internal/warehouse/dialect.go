package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	sb "fknsrs.biz/p/sqlbuilder"
)

var (
	ErrUnknownDialect = fmt.Errorf("warehouse: unknown database dialect")
)

// Dialect holds the few places where the sqlite and postgres schemas
// differ. Statements otherwise use the syntax both engines accept.
//
// Parameters are numbered, but sqlite reads "$N" as a named parameter and
// numbers it by first appearance, so it gets "?N" instead.
type Dialect struct {
	Name            string
	Builder         sb.Dialect
	ParameterPrefix string
	TimestampType   string
	InstantType     string
	SerialType      string
	CreateView      string
}

var (
	SQLite = Dialect{
		Name:            "sqlite3",
		Builder:         sb.DialectSQLite{},
		ParameterPrefix: "?",
		TimestampType:   "datetime",
		InstantType:     "datetime",
		SerialType:      "integer primary key autoincrement",
		CreateView:      "create view if not exists",
	}

	Postgres = Dialect{
		Name:            "postgres",
		Builder:         sb.DialectPostgres{},
		ParameterPrefix: "$",
		TimestampType:   "timestamp",
		InstantType:     "timestamptz",
		SerialType:      "bigserial primary key",
		CreateView:      "create or replace view",
	}
)

// Placeholder returns the text for the nth (1-based) query parameter.
func (d Dialect) Placeholder(n int) string {
	return d.ParameterPrefix + strconv.Itoa(n)
}

// Placeholders returns the first n placeholders, joined with ", ".
func (d Dialect) Placeholders(n int) string {
	a := make([]string, n)
	for i := range a {
		a[i] = d.Placeholder(i + 1)
	}

	return strings.Join(a, ", ")
}

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("warehouse.DialectFor: %q: %w", name, ErrUnknownDialect)
	}
}

// SQLiteDSN turns a database path into a DSN with foreign key enforcement
// switched on for every connection in the pool.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}
