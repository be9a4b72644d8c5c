package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/engine"
	"github.com/ignite/customer-alerts/internal/pkg/distlock"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type stubLedger struct {
	rows []datanorm.OrderRow
	err  error
}

func (s stubLedger) Load(context.Context, time.Time) (*datanorm.ReadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &datanorm.ReadResult{Rows: s.rows}, nil
}

type stubContacts struct {
	log contactlog.Log
	err error
}

func (s stubContacts) Load(context.Context, time.Time) (contactlog.Log, error) {
	return s.log, s.err
}

type recordingSink struct {
	saved []*engine.Result
	err   error
}

func (r *recordingSink) Save(_ context.Context, res *engine.Result) error {
	r.saved = append(r.saved, res)
	return r.err
}

func scoringCfg() *config.Scoring {
	s := config.DefaultScoring()
	s.Normalize()
	return &s
}

func rows() []datanorm.OrderRow {
	var out []datanorm.OrderRow
	for i := 0; i < 4; i++ {
		out = append(out, datanorm.OrderRow{
			Name:    "张三",
			Phone:   "13800000001",
			Item:    "玫瑰精华",
			Gross:   500,
			PayDate: today.AddDate(0, 0, -(15 + i*30)),
		})
	}
	return out
}

func TestRun(t *testing.T) {
	sink := &recordingSink{}
	var seen int32
	r := New(scoringCfg(), stubLedger{rows: rows()},
		WithSink(sink),
		WithContacts(stubContacts{log: contactlog.Log{}}))
	r.OnRow = func() { atomic.AddInt32(&seen, 1) }

	assert.Nil(t, r.Latest())

	res, err := r.Run(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int32(4), seen)
	require.Len(t, sink.saved, 1)
	assert.Same(t, res, sink.saved[0])
	assert.Same(t, res, r.Latest())
	assert.Equal(t, 1, res.Summary.Customers)
	assert.Contains(t, res.Meta, "13800000001")
}

func TestRunErrors(t *testing.T) {
	_, err := New(scoringCfg(), stubLedger{err: errors.New("no file")}).Run(context.Background(), today)
	assert.ErrorContains(t, err, "loading ledger")

	_, err = New(scoringCfg(), stubLedger{rows: rows()},
		WithContacts(stubContacts{err: errors.New("403")})).Run(context.Background(), today)
	assert.ErrorContains(t, err, "loading contact log")

	r := New(scoringCfg(), stubLedger{rows: rows()}, WithSink(&recordingSink{err: errors.New("disk full")}))
	res, err := r.Run(context.Background(), today)
	assert.ErrorContains(t, err, "disk full")
	assert.NotNil(t, res)
	assert.Nil(t, r.Latest())
}

func TestRunLocked(t *testing.T) {
	holder := distlock.NewLocalLock("test-run")
	ok, err := holder.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Release(context.Background())

	r := New(scoringCfg(), stubLedger{rows: rows()},
		WithLock(func() distlock.Lock { return distlock.NewLocalLock("test-run") }))
	_, err = r.Run(context.Background(), today)
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, holder.Release(context.Background()))
	_, err = r.Run(context.Background(), today)
	assert.NoError(t, err)
}
