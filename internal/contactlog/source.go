package contactlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
)

// Source yields a contact log for a run.
type Source interface {
	Load(ctx context.Context, today time.Time) (Log, error)
}

// NewSource returns the configured source, or nil when contact history
// is disabled.
func NewSource(cfg config.ContactLogConfig) (Source, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "file":
		return FileSource{Path: cfg.Path}, nil
	case "bitable":
		if cfg.AppToken == "" || cfg.TableID == "" {
			return nil, fmt.Errorf("contact log: bitable needs app token and table id")
		}
		return NewBitableSource(cfg), nil
	}
	return nil, fmt.Errorf("contact log: unknown type %q", cfg.Type)
}
