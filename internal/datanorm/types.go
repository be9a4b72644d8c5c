package datanorm

import (
	"errors"
	"time"
)

// Input-shape errors. Either one means no customer timeline can be built.
var (
	ErrNoDateColumn     = errors.New("no pay date column found in header")
	ErrNoIdentityColumn = errors.New("no name, phone or address column found in header")
)

// OrderRow is one normalized ledger line. Absent or malformed values are
// zero: empty strings, 0 amounts and a zero PayDate.
type OrderRow struct {
	Name         string
	Phone        string
	Address      string
	Owner        string
	Platform     string
	Item         string
	Manufacturer string
	Status       string
	Gross        float64
	Net          float64
	Profit       float64
	Cost         float64
	RefundAmount float64
	RefundStatus string
	RefundType   string
	RefundReason string
	RefundDate   time.Time
	PayDate      time.Time
	OrderNo      string
	ReturnNo     string
	Notes        string
	DataSource   string
}

// HasPayDate reports whether the pay date parsed.
func (r OrderRow) HasPayDate() bool { return !r.PayDate.IsZero() }

// ReadResult is the outcome of reading one ledger.
type ReadResult struct {
	Rows     []OrderRow
	Blank    int // rows with no cell content, skipped
	BadDates int // rows whose pay date cell was set but unparseable
	Mapping  *ColumnMapping
}
