package contactlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
)

// FileSource reads a contact log exported as CSV or XLSX.
type FileSource struct {
	Path  string
	Sheet string
}

// Load reads the file. A missing file is an error; rows that cannot be
// used are skipped and counted in the log line.
func (s FileSource) Load(_ context.Context, today time.Time) (Log, error) {
	header, rows, err := datanorm.ReadTableFile(s.Path, s.Sheet)
	if err != nil {
		return nil, fmt.Errorf("contact log: %w", err)
	}
	log, skipped := FromRecords(header, rows, today)
	logger.Info("contact log loaded", "source", "file", "entries", len(log), "skipped", skipped)
	return log, nil
}
