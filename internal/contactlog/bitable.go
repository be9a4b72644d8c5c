package contactlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/pkg/httpretry"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
)

// chinaTime is the zone Feishu date fields are entered in.
var chinaTime = time.FixedZone("CST", 8*3600)

// BitableSource pages through a Feishu bitable table.
type BitableSource struct {
	baseURL  string
	appToken string
	tableID  string
	pageSize int
	client   httpretry.HTTPDoer
}

// NewBitableSource builds a client authenticating with the configured
// access token.
func NewBitableSource(cfg config.ContactLogConfig, opts ...httpretry.Option) *BitableSource {
	base := &http.Client{Timeout: cfg.Timeout()}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.AccessToken,
		TokenType:   "Bearer",
	}))
	return &BitableSource{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		appToken: cfg.AppToken,
		tableID:  cfg.TableID,
		pageSize: cfg.PageSize,
		client:   httpretry.New(authed, opts...),
	}
}

type recordsResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Items []struct {
			RecordID string                 `json:"record_id"`
			Fields   map[string]interface{} `json:"fields"`
		} `json:"items"`
		PageToken string `json:"page_token"`
		HasMore   bool   `json:"has_more"`
		Total     int    `json:"total"`
	} `json:"data"`
}

// Load fetches every record and keeps the latest contact per phone.
func (s *BitableSource) Load(ctx context.Context, today time.Time) (Log, error) {
	log := make(Log)
	skipped, pages := 0, 0
	token := ""
	for {
		page, err := s.fetchPage(ctx, token)
		if err != nil {
			return nil, err
		}
		pages++
		for _, it := range page.Data.Items {
			fields := it.Fields
			e, ok := parseEntry(func(f field) string { return bitableValue(fields, f) }, today)
			if !ok {
				skipped++
				continue
			}
			log.Merge(e)
		}
		if !page.Data.HasMore || page.Data.PageToken == "" {
			break
		}
		token = page.Data.PageToken
	}
	logger.Info("contact log loaded", "source", "bitable", "entries", len(log), "skipped", skipped, "pages", pages)
	return log, nil
}

func (s *BitableSource) fetchPage(ctx context.Context, pageToken string) (*recordsResponse, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(s.pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	endpoint := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records?%s",
		s.baseURL, url.PathEscape(s.appToken), url.PathEscape(s.tableID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("bitable: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitable: list records: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bitable: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitable: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	var out recordsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("bitable: decode: %w", err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("bitable: code %d: %s", out.Code, out.Msg)
	}
	return &out, nil
}

// bitableValue resolves a field by alias and flattens the bitable cell
// shapes: plain strings, numbers, millisecond timestamps for date fields,
// rich-text segments and person objects.
func bitableValue(fields map[string]interface{}, f field) string {
	for _, alias := range fieldAliases[f] {
		for name, v := range fields {
			if !strings.EqualFold(strings.TrimSpace(name), alias) {
				continue
			}
			if f == fieldLastContact || f == fieldNextContact {
				if ms, ok := v.(float64); ok && ms > 1e11 {
					return time.UnixMilli(int64(ms)).In(chinaTime).Format("2006-01-02")
				}
			}
			return flatten(v)
		}
	}
	return ""
}

func flatten(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			if s := flatten(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	case map[string]interface{}:
		for _, k := range []string{"text", "name", "value", "full_number"} {
			if s, ok := x[k]; ok {
				return flatten(s)
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
