package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Query describes where outcome rows live in a SQL database.
type Query struct {
	DSN     string // postgres://… or a SQLite file path
	Table   string
	Columns Columns
	SQL     string // overrides Table; must return the group and outcome columns
}

// DefaultTable is read when neither Table nor SQL is set.
const DefaultTable = "outcomes"

// DriverFor maps a DSN to a registered database/sql driver name.
func DriverFor(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	default:
		return "sqlite", dsn
	}
}

// statement builds the SELECT for q.
func (q Query) statement() string {
	if q.SQL != "" {
		return q.SQL
	}
	cols := q.Columns.withDefaults()
	table := q.Table
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s", quoteIdent(cols.Group), quoteIdent(cols.Outcome), quoteIdent(table))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Load runs q against its database and extracts both samples.
func Load(ctx context.Context, q Query) (*Samples, error) {
	driver, source := DriverFor(q.DSN)

	db, err := sqlx.ConnectContext(ctx, driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, q.statement())
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	table := [][]string{header}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = sqlString(v)
		}
		table = append(table, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return Extract(table, q.Columns)
}

func sqlString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
