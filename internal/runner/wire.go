package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/pkg/distlock"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/source"
	"github.com/ignite/customer-alerts/internal/storage"
)

// Deps is everything a configured runner holds open.
type Deps struct {
	Runner *Runner
	Cache  *storage.MetaCache // nil without Redis
	closer io.Closer
}

// Close releases the ledger source.
func (d *Deps) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// FromConfig wires source, contact log, sinks and lock from cfg. A nil
// client disables the meta cache and falls back to a process lock.
func FromConfig(ctx context.Context, cfg *config.Config, client redis.Cmdable) (*Deps, error) {
	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	deps := &Deps{}
	if c, ok := src.(io.Closer); ok {
		deps.closer = c
	}

	contacts, err := contactlog.NewSource(cfg.ContactLog)
	if err != nil {
		deps.Close()
		return nil, err
	}

	sink, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	sinks := storage.Multi{sink}

	lockTTL := cfg.Redis.LockTTL()
	if client != nil {
		deps.Cache = storage.NewMetaCache(client, cfg.Redis.MetaTTL())
		sinks = append(sinks, deps.Cache)
	}

	opts := []Option{
		WithSink(sinks),
		WithLock(func() distlock.Lock { return distlock.New(client, LockKey, lockTTL) }),
	}
	if contacts != nil {
		opts = append(opts, WithContacts(contacts))
	}
	deps.Runner = New(&cfg.Scoring, src, opts...)

	logger.Info("runner configured",
		"source", cfg.Source.Type,
		"storage", cfg.Storage.Type,
		"contact_log", cfg.ContactLog.Type,
		"redis", client != nil)
	return deps, nil
}
