// Package source reads order ledgers from files, SQL databases and S3.
// Every source hands its table to datanorm, so parsing rules are the same
// wherever the rows come from.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/datanorm"
)

// Source yields normalized ledger rows.
type Source interface {
	Load(ctx context.Context, today time.Time) (*datanorm.ReadResult, error)
}

// File reads a CSV or XLSX ledger from disk.
type File struct {
	Path  string
	Sheet string
}

// Load implements Source.
func (f File) Load(_ context.Context, today time.Time) (*datanorm.ReadResult, error) {
	return datanorm.ReadFile(f.Path, f.Sheet, today)
}

// New builds the configured source. Close it when it implements
// io.Closer.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "", "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("source: file path is empty")
		}
		return File{Path: cfg.Path, Sheet: cfg.Sheet}, nil
	case "sql":
		return OpenSQL(cfg.Driver, cfg.DSN, cfg.Query)
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("source: unknown type %q", cfg.Type)
}
