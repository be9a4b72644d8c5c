// Package storage persists run results: local files, S3 objects with a
// DynamoDB run summary, and a Redis meta cache for customer lookups.
package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/ignite/customer-alerts/internal/engine"
)

// Snapshot file names, one set per run day.
const (
	OverviewCSV = "overview.csv"
	ActionsCSV  = "actions.csv"
	ActionsJSON = "actions.json"
	MetaJSON    = "meta.json"
	DetailsJSON = "details.json"
	SKUJSON     = "sku.json"
)

// File is one encoded snapshot object.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// utf8BOM lets spreadsheet tools detect the encoding of CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode renders a result into its snapshot files, in a fixed order.
func Encode(res *engine.Result) ([]File, error) {
	overview := make([][]string, 0, len(res.Overview))
	for _, r := range res.Overview {
		overview = append(overview, r.Values())
	}
	actions := make([][]string, 0, len(res.Actions))
	for _, r := range res.Actions {
		actions = append(actions, r.Values())
	}

	ov, err := encodeCSV(engine.OverviewColumns, overview)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", OverviewCSV, err)
	}
	ac, err := encodeCSV(engine.ActionColumns, actions)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ActionsCSV, err)
	}
	aj, err := encodeJSON(res.Actions)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ActionsJSON, err)
	}
	mj, err := encodeJSON(res.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MetaJSON, err)
	}
	dj, err := encodeJSON(res.Details)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", DetailsJSON, err)
	}
	sj, err := encodeJSON(res.SKU)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", SKUJSON, err)
	}

	return []File{
		{OverviewCSV, "text/csv; charset=utf-8", ov},
		{ActionsCSV, "text/csv; charset=utf-8", ac},
		{ActionsJSON, "application/json", aj},
		{MetaJSON, "application/json", mj},
		{DetailsJSON, "application/json", dj},
		{SKUJSON, "application/json", sj},
	}, nil
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunDay is the directory or prefix name of a run.
func RunDay(res *engine.Result) string {
	return res.Today.Format("2006-01-02")
}
