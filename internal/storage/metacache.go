package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-alerts/internal/engine"
)

// ErrNotFound is returned when a customer has no cached meta entry.
var ErrNotFound = errors.New("storage: customer not found")

const (
	metaKeyPrefix  = "alerts:meta:"
	phoneKeyPrefix = "alerts:phone:"
	runKey         = "alerts:run"
)

// MetaCache keeps the latest meta map in Redis hashes so lookups do not
// need the run files.
type MetaCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewMetaCache wraps client. A zero ttl keeps entries forever.
func NewMetaCache(client redis.Cmdable, ttl time.Duration) *MetaCache {
	return &MetaCache{client: client, ttl: ttl}
}

// Save implements Sink by writing every meta entry and the run marker.
func (m *MetaCache) Save(ctx context.Context, res *engine.Result) error {
	pipe := m.client.Pipeline()
	for key, meta := range res.Meta {
		hk := metaKeyPrefix + key
		pipe.Del(ctx, hk)
		pipe.HSet(ctx, hk, metaFields(meta))
		if meta.Phone != "" {
			pipe.Set(ctx, phoneKeyPrefix+meta.Phone, key, m.ttl)
		}
		if m.ttl > 0 {
			pipe.Expire(ctx, hk, m.ttl)
		}
	}
	pipe.HSet(ctx, runKey, map[string]interface{}{
		"run_id":    res.RunID,
		"today":     RunDay(res),
		"customers": len(res.Meta),
		"worklist":  len(res.Actions),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching meta: %w", err)
	}
	return nil
}

// Lookup resolves a customer by key, falling back to a phone number.
func (m *MetaCache) Lookup(ctx context.Context, keyOrPhone string) (engine.Meta, error) {
	vals, err := m.client.HGetAll(ctx, metaKeyPrefix+keyOrPhone).Result()
	if err != nil {
		return engine.Meta{}, fmt.Errorf("reading meta: %w", err)
	}
	if len(vals) == 0 {
		key, err := m.client.Get(ctx, phoneKeyPrefix+keyOrPhone).Result()
		if errors.Is(err, redis.Nil) {
			return engine.Meta{}, ErrNotFound
		}
		if err != nil {
			return engine.Meta{}, fmt.Errorf("reading phone index: %w", err)
		}
		if vals, err = m.client.HGetAll(ctx, metaKeyPrefix+key).Result(); err != nil {
			return engine.Meta{}, fmt.Errorf("reading meta: %w", err)
		}
		if len(vals) == 0 {
			return engine.Meta{}, ErrNotFound
		}
	}
	return parseMeta(vals), nil
}

// LastRun returns the id and day of the most recently cached run.
func (m *MetaCache) LastRun(ctx context.Context) (id, day string, err error) {
	vals, err := m.client.HMGet(ctx, runKey, "run_id", "today").Result()
	if err != nil {
		return "", "", fmt.Errorf("reading run marker: %w", err)
	}
	id, _ = vals[0].(string)
	day, _ = vals[1].(string)
	return id, day, nil
}

func metaFields(m engine.Meta) map[string]interface{} {
	return map[string]interface{}{
		"key":            m.Key,
		"name":           m.Name,
		"phone":          m.Phone,
		"orders":         m.Orders,
		"last_order":     m.LastOrder,
		"priority_score": strconv.FormatFloat(m.Score, 'f', -1, 64),
		"priority_tier":  m.Tier,
		"customer_list":  m.CustomerList,
		"customer_value": m.Value,
		"status":         m.Status,
		"decision":       m.Decision,
	}
}

func parseMeta(v map[string]string) engine.Meta {
	orders, _ := strconv.Atoi(v["orders"])
	score, _ := strconv.ParseFloat(v["priority_score"], 64)
	return engine.Meta{
		Key:          v["key"],
		Name:         v["name"],
		Phone:        v["phone"],
		Orders:       orders,
		LastOrder:    v["last_order"],
		Score:        score,
		Tier:         v["priority_tier"],
		CustomerList: v["customer_list"],
		Value:        v["customer_value"],
		Status:       v["status"],
		Decision:     v["decision"],
	}
}
