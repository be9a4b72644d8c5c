package contactlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/pkg/httpretry"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeKeepsLatest(t *testing.T) {
	l := make(Log)
	l.Merge(Entry{Phone: "13800000000", LastContact: date(2024, 6, 1), Owner: "小林", Note: "first"})
	l.Merge(Entry{Phone: "13800000000", LastContact: date(2024, 6, 10), ReplyStatus: "已回复"})
	l.Merge(Entry{Phone: "13800000000", LastContact: date(2024, 5, 1), Happiness: 3, HasHappiness: true})
	l.Merge(Entry{LastContact: date(2024, 6, 12)})

	require.Len(t, l, 1)
	e, ok := l.Lookup("13800000000")
	require.True(t, ok)
	assert.Equal(t, date(2024, 6, 10), e.LastContact)
	assert.Equal(t, "已回复", e.ReplyStatus)
	assert.Equal(t, "小林", e.Owner)
	assert.Empty(t, e.Note)
	assert.True(t, e.HasHappiness)

	_, ok = l.Lookup("")
	assert.False(t, ok)
	_, ok = Log(nil).Lookup("13800000000")
	assert.False(t, ok)
}

func TestMergeRecontactClearsReplyStatus(t *testing.T) {
	header := []string{"手机号", "最后联系日期", "回复状态", "备注"}
	rows := [][]string{
		{"13800000001", "2024-03-01", "未回复", "发了三次"},
		{"13800000001", "2024-06-01", "", ""},
	}
	log, skipped := FromRecords(header, rows, today)
	assert.Zero(t, skipped)

	e, ok := log.Lookup("13800000001")
	require.True(t, ok)
	assert.Equal(t, date(2024, 6, 1), e.LastContact)
	assert.Empty(t, e.ReplyStatus)
	assert.Empty(t, e.Note)
	assert.False(t, e.NoReply())

	// Order of rows does not matter.
	log, _ = FromRecords(header, [][]string{rows[1], rows[0]}, today)
	assert.False(t, log["13800000001"].NoReply())
}

func TestNoReply(t *testing.T) {
	tests := map[string]bool{
		"":               false,
		"已回复":            false,
		"未回复":            true,
		"客户不感兴趣":         true,
		"明确拒绝":           true,
		"No Reply":       true,
		"not interested": true,
	}
	for status, want := range tests {
		assert.Equal(t, want, Entry{ReplyStatus: status}.NoReply(), status)
	}
}

func TestFromRecords(t *testing.T) {
	header := []string{"手机号", "最后联系日期", "跟进人", "回复状态", "备注", "下次联系日期", "满意度"}
	rows := [][]string{
		{"+86 138 0000 0001", "2024-06-10", "小林", "已回复", "想要新品", "2024/06/20", "4.5"},
		{"13800000001", "2024-06-01", "", "", "", "", ""},
		{"13800000002", "", "小王", "", "", "", ""},
		{"", "2024-06-01", "", "", "", "", ""},
		{"13800000003", "6月12日", "", "未回复", "", "", "x"},
		{"", "", "", "", "", "", ""},
	}
	log, skipped := FromRecords(header, rows, today)
	assert.Equal(t, 2, skipped)
	require.Len(t, log, 2)

	e := log["13800000001"]
	assert.Equal(t, date(2024, 6, 10), e.LastContact)
	assert.Equal(t, date(2024, 6, 20), e.NextContact)
	assert.Equal(t, "小林", e.Owner)
	assert.Equal(t, "想要新品", e.Note)
	assert.InDelta(t, 4.5, e.Happiness, 1e-9)
	assert.True(t, e.HasHappiness)

	e = log["13800000003"]
	assert.Equal(t, date(2024, 6, 12), e.LastContact)
	assert.True(t, e.NoReply())
	assert.False(t, e.HasHappiness)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := "\ufeffphone,last_contact,owner\n13800000001,2024-06-10,小林\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	log, err := FileSource{Path: path}.Load(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, "小林", log["13800000001"].Owner)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background(), today)
	assert.Error(t, err)
}

func bitableServer(t *testing.T, pages []map[string]interface{}) (*httptest.Server, *[]string) {
	t.Helper()
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/bitable/v1/apps/app1/tables/tbl1/records", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))
		tokens = append(tokens, r.URL.Query().Get("page_token"))
		i := len(tokens) - 1
		if i >= len(pages) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(pages[i])
	}))
	t.Cleanup(srv.Close)
	return srv, &tokens
}

func bitableCfg(url string) config.ContactLogConfig {
	return config.ContactLogConfig{
		Type:           "bitable",
		BaseURL:        url + "/",
		AppToken:       "app1",
		TableID:        "tbl1",
		AccessToken:    "secret",
		PageSize:       2,
		TimeoutSeconds: 5,
	}
}

func TestBitableSourcePaginates(t *testing.T) {
	june10 := time.Date(2024, 6, 10, 9, 30, 0, 0, chinaTime).UnixMilli()
	pages := []map[string]interface{}{
		{"code": 0, "data": map[string]interface{}{
			"has_more":   true,
			"page_token": "p2",
			"items": []interface{}{
				map[string]interface{}{"record_id": "r1", "fields": map[string]interface{}{
					"手机号":    "13800000001",
					"最后联系日期": float64(june10),
					"负责人":    []interface{}{map[string]interface{}{"name": "小林", "id": "ou_1"}},
					"备注":     []interface{}{map[string]interface{}{"type": "text", "text": "想要"}, map[string]interface{}{"type": "text", "text": "新品"}},
				}},
				map[string]interface{}{"record_id": "r2", "fields": map[string]interface{}{
					"手机号": "13800000009",
				}},
			},
		}},
		{"code": 0, "data": map[string]interface{}{
			"has_more": false,
			"items": []interface{}{
				map[string]interface{}{"record_id": "r3", "fields": map[string]interface{}{
					"手机号":    "13800000002",
					"最后联系日期": "2024-06-01",
					"回复状态":   "不感兴趣",
					"满意度":    float64(2),
				}},
			},
		}},
	}
	srv, tokens := bitableServer(t, pages)

	log, err := NewBitableSource(bitableCfg(srv.URL)).Load(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "p2"}, *tokens)
	require.Len(t, log, 2)

	e := log["13800000001"]
	assert.Equal(t, date(2024, 6, 10), e.LastContact)
	assert.Equal(t, "小林", e.Owner)
	assert.Equal(t, "想要新品", e.Note)

	e = log["13800000002"]
	assert.True(t, e.NoReply())
	assert.InDelta(t, 2, e.Happiness, 1e-9)
}

func TestBitableSourceAPIError(t *testing.T) {
	srv, _ := bitableServer(t, []map[string]interface{}{{"code": 91402, "msg": "NOTEXIST"}})
	_, err := NewBitableSource(bitableCfg(srv.URL)).Load(context.Background(), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTEXIST")
}

func TestBitableSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewBitableSource(bitableCfg(srv.URL),
		httpretry.WithMaxRetries(1), httpretry.WithBackoff(time.Millisecond, time.Millisecond))
	_, err := src.Load(context.Background(), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.ContactLogConfig{})
	require.NoError(t, err)
	assert.Nil(t, src)

	src, err = NewSource(config.ContactLogConfig{Type: "file", Path: "x.csv"})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "x.csv"}, src)

	_, err = NewSource(config.ContactLogConfig{Type: "bitable"})
	assert.Error(t, err)

	_, err = NewSource(config.ContactLogConfig{Type: "ftp"})
	assert.Error(t, err)
}
