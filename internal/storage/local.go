package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/engine"
)

// Sink persists a run.
type Sink interface {
	Save(ctx context.Context, res *engine.Result) error
}

// Local writes snapshots under <root>/<day>/.
type Local struct {
	root string
}

// NewLocal creates root if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Save replaces the snapshot of the run's day.
func (l *Local) Save(_ context.Context, res *engine.Result) error {
	files, err := Encode(res)
	if err != nil {
		return err
	}
	dir := filepath.Join(l.root, RunDay(res))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	for _, f := range files {
		if err := writeAtomic(filepath.Join(dir, f.Name), f.Data); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic writes to a temp file and renames it into place, so readers
// never see a half-written snapshot.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Days lists stored run days, newest first.
func (l *Local) Days() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}
	var days []string
	for _, e := range entries {
		if e.IsDir() {
			days = append(days, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// LoadActions reads the worklist stored for day.
func (l *Local) LoadActions(day string) ([]engine.ActionRow, error) {
	var rows []engine.ActionRow
	if err := l.readJSON(day, ActionsJSON, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadMeta reads the meta map stored for day.
func (l *Local) LoadMeta(day string) (map[string]engine.Meta, error) {
	meta := make(map[string]engine.Meta)
	if err := l.readJSON(day, MetaJSON, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (l *Local) readJSON(day, name string, target interface{}) error {
	data, err := os.ReadFile(filepath.Join(l.root, day, name))
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", day, name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", day, name, err)
	}
	return nil
}

// New builds the configured file sink: "local" or "s3".
func New(ctx context.Context, cfg config.StorageConfig) (Sink, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocal(cfg.LocalPath)
	case "s3":
		return NewAWS(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}
}
