package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"     // MySQL driver
	_ "github.com/lib/pq"                  // PostgreSQL driver
	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/customer-alerts/internal/datanorm"
)

var drivers = map[string]bool{"postgres": true, "mysql": true, "snowflake": true}

// SQL runs a query whose result columns are ledger column titles, for
// example SELECT name AS 姓名, paid_at AS 顾客付款日期 ...
type SQL struct {
	db    *sql.DB
	query string
}

// OpenSQL opens a pooled connection for driver.
func OpenSQL(driver, dsn, query string) (*SQL, error) {
	if !drivers[driver] {
		return nil, fmt.Errorf("source: unsupported sql driver %q", driver)
	}
	if query == "" {
		return nil, fmt.Errorf("source: sql query is empty")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewSQL(db, query), nil
}

// NewSQL wraps an existing handle.
func NewSQL(db *sql.DB, query string) *SQL {
	return &SQL{db: db, query: query}
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load runs the query and normalizes the result set.
func (s *SQL) Load(ctx context.Context, today time.Time) (*datanorm.ReadResult, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("source: query ledger: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("source: columns: %w", err)
	}

	var table [][]string
	vals := make([]interface{}, len(header))
	ptrs := make([]interface{}, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("source: scan row %d: %w", len(table)+1, err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = cellString(v)
		}
		table = append(table, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: iterate rows: %w", err)
	}
	return datanorm.ReadRecords(header, table, today)
}

// cellString renders a driver value the way a spreadsheet export would.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}
