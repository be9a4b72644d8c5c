package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/engine"
)

func sampleResult() *engine.Result {
	return &engine.Result{
		RunID: "run-1",
		Today: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Overview: []engine.OverviewRow{
			{Key: "13800000001", Name: "张三"},
			{Key: "13800000002", Name: "李四"},
		},
		Actions: []engine.ActionRow{
			{Key: "13800000001", Name: "张三", RecommendedAction: "回访，附赠小样"},
		},
		Meta: map[string]engine.Meta{
			"13800000001": {Key: "13800000001", Name: "张三", Phone: "13800000001", Orders: 4, Score: 150.5, Status: engine.StatusInWorklist},
			"13800000002": {Key: "13800000002", Name: "李四", Phone: "13800000002", Orders: 1, Status: engine.StatusNotPrioritized, Decision: "no_trigger"},
		},
		Details: map[string]engine.CustomerDetails{
			"13800000001": {Name: "张三", Phone: "13800000001", Lines: []engine.DetailRow{{Item: "玫瑰精华", OrderNo: "SF1001"}}},
		},
		Summary: engine.Summary{Rows: 7, Customers: 2, Worklist: 1},
	}
}

func TestEncode(t *testing.T) {
	files, err := Encode(sampleResult())
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{OverviewCSV, ActionsCSV, ActionsJSON, MetaJSON, DetailsJSON, SKUJSON}, names)

	ov := files[0].Data
	require.True(t, bytes.HasPrefix(ov, utf8BOM))
	records, err := csv.NewReader(bytes.NewReader(ov[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, engine.OverviewColumns, records[0])
	assert.Len(t, records[1], len(engine.OverviewColumns))

	// HTML escaping stays off so Chinese text and symbols read cleanly.
	assert.Contains(t, string(files[2].Data), "回访，附赠小样")
	assert.Contains(t, string(files[4].Data), `"order_no": "SF1001"`)
}

func TestLocalSaveAndLoad(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	l, err := NewLocal(root)
	require.NoError(t, err)

	require.NoError(t, l.Save(context.Background(), sampleResult()))
	for _, name := range []string{OverviewCSV, ActionsCSV, ActionsJSON, MetaJSON, DetailsJSON, SKUJSON} {
		_, err := os.Stat(filepath.Join(root, "2024-03-15", name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(root, "2024-03-15", MetaJSON+".tmp"))
	assert.True(t, os.IsNotExist(err))

	days, err := l.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-15"}, days)

	actions, err := l.LoadActions("2024-03-15")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "张三", actions[0].Name)

	meta, err := l.LoadMeta("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusNotPrioritized, meta["13800000002"].Status)

	_, err = l.LoadMeta("2024-01-01")
	assert.Error(t, err)
}

func TestLocalDaysNewestFirst(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)

	res := sampleResult()
	require.NoError(t, l.Save(context.Background(), res))
	res.Today = res.Today.AddDate(0, 0, 1)
	require.NoError(t, l.Save(context.Background(), res))

	days, err := l.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-16", "2024-03-15"}, days)
}

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

type fakeDynamo struct {
	items []*dynamodb.PutItemInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in)
	return &dynamodb.PutItemOutput{}, nil
}

func TestAWSSave(t *testing.T) {
	s3c := &fakeS3{}
	dyn := &fakeDynamo{}
	a := NewAWSWithClients(s3c, dyn, "bucket", "alerts", "runs")
	a.now = func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }

	require.NoError(t, a.Save(context.Background(), sampleResult()))

	assert.Len(t, s3c.objects, 6)
	assert.Contains(t, s3c.objects, "alerts/2024-03-15/meta.json")
	assert.True(t, bytes.HasPrefix(s3c.objects["alerts/2024-03-15/overview.csv"], utf8BOM))

	require.Len(t, dyn.items, 1)
	assert.Equal(t, "runs", aws.ToString(dyn.items[0].TableName))
	var item RunItem
	require.NoError(t, attributevalue.UnmarshalMap(dyn.items[0].Item, &item))
	assert.Equal(t, "RUN#2024-03-15", item.PK)
	assert.Equal(t, "2024-03-15T09:30:00Z#run-1", item.SK)
	assert.Equal(t, "alerts/2024-03-15", item.Prefix)
	assert.Contains(t, item.Data, `"worklist":1`)
	assert.Greater(t, item.TTL, a.now().Unix())
}

func TestAWSSaveWithoutTable(t *testing.T) {
	s3c := &fakeS3{}
	a := NewAWSWithClients(s3c, nil, "bucket", "", "")
	require.NoError(t, a.Save(context.Background(), sampleResult()))
	assert.Contains(t, s3c.objects, "2024-03-15/actions.json")
}

func TestAWSSaveUploadError(t *testing.T) {
	a := NewAWSWithClients(&fakeS3{err: errors.New("denied")}, nil, "bucket", "p", "")
	err := a.Save(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/p/2024-03-15/overview.csv")
}

func newTestCache(t *testing.T, ttl time.Duration) (*MetaCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewMetaCache(client, ttl), mr
}

func TestMetaCacheLookup(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, sampleResult()))

	got, err := cache.Lookup(ctx, "13800000001")
	require.NoError(t, err)
	assert.Equal(t, "张三", got.Name)
	assert.Equal(t, 4, got.Orders)
	assert.Equal(t, 150.5, got.Score)
	assert.Equal(t, engine.StatusInWorklist, got.Status)

	assert.True(t, mr.TTL(metaKeyPrefix+"13800000001") > 0)

	_, err = cache.Lookup(ctx, "13900000000")
	assert.ErrorIs(t, err, ErrNotFound)

	id, day, err := cache.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
	assert.Equal(t, "2024-03-15", day)
}

func TestMetaCacheLookupByPhone(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	res := sampleResult()
	res.Meta = map[string]engine.Meta{
		"王五": {Key: "王五", Name: "王五", Phone: "13700000009", Orders: 2, Status: engine.StatusNotPrioritized},
	}
	require.NoError(t, cache.Save(ctx, res))

	got, err := cache.Lookup(ctx, "13700000009")
	require.NoError(t, err)
	assert.Equal(t, "王五", got.Key)
}

func TestMetaCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, sampleResult()))

	mr.FastForward(2 * time.Minute)
	_, err := cache.Lookup(ctx, "13800000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingSink struct{ err error }

func (f failingSink) Save(context.Context, *engine.Result) error { return f.err }

func TestMulti(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	err = Multi{failingSink{errors.New("a down")}, l, failingSink{errors.New("b down")}}.Save(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")

	days, err := l.Days()
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, err = New(context.Background(), config.StorageConfig{Type: "s3"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
