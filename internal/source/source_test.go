package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/datanorm"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestSQLLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM orders").WillReturnRows(
		sqlmock.NewRows([]string{"姓名", "手机号", "顾客付款日期", "收款额", "退款金额"}).
			AddRow("王女士", "13800000001", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), 328.5, nil).
			AddRow([]byte("李先生"), "13800000002", "2024/05/20", int64(199), "99"),
	)

	src := NewSQL(db, "SELECT name AS 姓名 FROM orders")
	res, err := src.Load(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, "王女士", res.Rows[0].Name)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), res.Rows[0].PayDate)
	assert.InDelta(t, 328.5, res.Rows[0].Gross, 1e-9)
	assert.Zero(t, res.Rows[0].RefundAmount)

	assert.Equal(t, "李先生", res.Rows[1].Name)
	assert.InDelta(t, 199, res.Rows[1].Gross, 1e-9)
	assert.InDelta(t, 99, res.Rows[1].RefundAmount, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoadShapeError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"姓名", "收款额"}).AddRow("王", 1))
	_, err = NewSQL(db, "SELECT 1").Load(context.Background(), today)
	assert.ErrorIs(t, err, datanorm.ErrNoDateColumn)
}

func TestSQLLoadQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))
	_, err = NewSQL(db, "SELECT 1").Load(context.Background(), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOpenSQLValidation(t *testing.T) {
	_, err := OpenSQL("sqlite", "x", "SELECT 1")
	assert.Error(t, err)
	_, err = OpenSQL("postgres", "postgres://localhost/db", "")
	assert.Error(t, err)
}

type fakeS3 struct {
	body []byte
	err  error
	in   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestS3LoadCSV(t *testing.T) {
	fake := &fakeS3{body: []byte("姓名,顾客付款日期,收款额\n王女士,2024-06-01,\"¥1,280\"\n")}
	res, err := NewS3WithClient(fake, "ledgers", "2024/06/orders.csv", "").Load(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "ledgers", *fake.in.Bucket)
	assert.Equal(t, "2024/06/orders.csv", *fake.in.Key)
	assert.Equal(t, "王女士", res.Rows[0].Name)
	assert.InDelta(t, 1280, res.Rows[0].Gross, 1e-9)
}

func TestS3LoadXLSX(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"手机号", "顾客付款日期", "收款额"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"13800000001", "2024-06-02", 500}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	res, err := NewS3WithClient(&fakeS3{body: buf.Bytes()}, "b", "orders.XLSX", "").Load(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "13800000001", res.Rows[0].Phone)
	assert.InDelta(t, 500, res.Rows[0].Gross, 1e-9)
}

func TestS3LoadError(t *testing.T) {
	_, err := NewS3WithClient(&fakeS3{err: errors.New("NoSuchKey")}, "b", "k.csv", "").Load(context.Background(), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/k.csv")
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("姓名,顾客付款日期,收款额\n王女士,2024-06-01,100\n"), 0o644))

	src, err := New(context.Background(), config.SourceConfig{Type: "file", Path: path})
	require.NoError(t, err)
	res, err := src.Load(context.Background(), today)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)

	_, err = New(context.Background(), config.SourceConfig{Type: "file"})
	assert.Error(t, err)
	_, err = New(context.Background(), config.SourceConfig{Type: "s3"})
	assert.Error(t, err)
	_, err = New(context.Background(), config.SourceConfig{Type: "kafka"})
	assert.Error(t, err)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "abc", cellString([]byte("abc")))
	assert.Equal(t, "42", cellString(int64(42)))
	assert.Equal(t, "1.5", cellString(1.5))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, "2024-06-01", cellString(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)))
}
