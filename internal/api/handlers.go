package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/engine"
	"github.com/ignite/customer-alerts/internal/pkg/httputil"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/runner"
	"github.com/ignite/customer-alerts/internal/storage"
)

// Runner runs scoring passes and remembers the last one.
type Runner interface {
	Run(ctx context.Context, today time.Time) (*engine.Result, error)
	Latest() *engine.Result
}

// MetaLookup resolves customers the in-memory result does not know,
// e.g. after a restart.
type MetaLookup interface {
	Lookup(ctx context.Context, keyOrPhone string) (engine.Meta, error)
}

// Handlers serves the alerts API.
type Handlers struct {
	runner Runner
	meta   MetaLookup
	now    func() time.Time
}

// NewHandlers creates handlers. meta may be nil.
func NewHandlers(r Runner, meta MetaLookup) *Handlers {
	return &Handlers{runner: r, meta: meta, now: time.Now}
}

// CustomerResponse is the lookup result for one customer. Details is
// only known for customers of the in-memory run.
type CustomerResponse struct {
	Status  string             `json:"status"`
	Meta    engine.Meta        `json:"meta"`
	Action  *engine.ActionRow  `json:"action,omitempty"`
	Details []engine.DetailRow `json:"details,omitempty"`
}

// GetCustomer looks a customer up by identity key or phone.
//
//	GET /api/customers/{key}
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		httputil.BadRequest(w, "customer key is required")
		return
	}

	if res := h.runner.Latest(); res != nil {
		if m, ok := findMeta(res, key); ok {
			resp := CustomerResponse{Status: m.Status, Meta: m, Details: res.Details[m.Key].Lines}
			for i := range res.Actions {
				if res.Actions[i].Key == m.Key {
					resp.Action = &res.Actions[i]
					break
				}
			}
			httputil.OK(w, resp)
			return
		}
	}

	if h.meta != nil {
		m, err := h.meta.Lookup(r.Context(), key)
		switch {
		case err == nil:
			httputil.OK(w, CustomerResponse{Status: m.Status, Meta: m})
			return
		case !errors.Is(err, storage.ErrNotFound):
			httputil.InternalError(w, err)
			return
		}
	}

	httputil.NotFound(w, "customer not found")
}

func findMeta(res *engine.Result, key string) (engine.Meta, bool) {
	if m, ok := res.Meta[key]; ok {
		return m, true
	}
	phone := datanorm.NormalizePhone(key)
	if phone == "" {
		return engine.Meta{}, false
	}
	for _, m := range res.Meta {
		if m.Phone == phone {
			return m, true
		}
	}
	return engine.Meta{}, false
}

// minOrderQuery keeps single-digit queries from matching every line.
const minOrderQuery = 4

// OrdersResponse lists ledger lines matching an order or return number.
type OrdersResponse struct {
	Query string              `json:"query"`
	Total int                 `json:"total"`
	Items []engine.OrderMatch `json:"items"`
}

// FindOrders looks ledger lines up by order or return number, also
// matching on digits alone.
//
//	GET /api/orders/{no}
func (h *Handlers) FindOrders(w http.ResponseWriter, r *http.Request) {
	no := strings.TrimSpace(chi.URLParam(r, "no"))
	if utf8.RuneCountInString(no) < minOrderQuery {
		httputil.BadRequest(w, "order number must have at least 4 characters")
		return
	}
	res := h.runner.Latest()
	if res == nil {
		httputil.NotFound(w, "no run yet")
		return
	}

	items := res.FindOrders(no)
	if len(items) == 0 {
		httputil.NotFound(w, "order not found")
		return
	}
	httputil.OK(w, OrdersResponse{Query: no, Total: len(items), Items: items})
}

// ActionsResponse is one page of the worklist.
type ActionsResponse struct {
	RunID string             `json:"run_id"`
	Today string             `json:"today"`
	Total int                `json:"total"`
	Items []engine.ActionRow `json:"items"`
}

// ListActions returns the current worklist in priority order, optionally
// filtered by list, tier or owner.
//
//	GET /api/actions?list=&tier=&owner=&limit=
func (h *Handlers) ListActions(w http.ResponseWriter, r *http.Request) {
	res := h.runner.Latest()
	if res == nil {
		httputil.NotFound(w, "no run yet")
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, tier, owner := q.Get("list"), q.Get("tier"), q.Get("owner")

	items := make([]engine.ActionRow, 0, len(res.Actions))
	for _, a := range res.Actions {
		if list != "" && a.CustomerList != list {
			continue
		}
		if tier != "" && a.PriorityTier != tier {
			continue
		}
		if owner != "" && a.Owner != owner {
			continue
		}
		items = append(items, a)
	}
	total := len(items)
	if limit > 0 && limit < total {
		items = items[:limit]
	}

	httputil.OK(w, ActionsResponse{
		RunID: res.RunID,
		Today: res.Today.Format("2006-01-02"),
		Total: total,
		Items: items,
	})
}

// GetSKUReport returns the item alerts of the latest run.
//
//	GET /api/sku
func (h *Handlers) GetSKUReport(w http.ResponseWriter, _ *http.Request) {
	res := h.runner.Latest()
	if res == nil {
		httputil.NotFound(w, "no run yet")
		return
	}
	httputil.OK(w, res.SKU)
}

// RunResponse describes a finished run.
type RunResponse struct {
	RunID   string         `json:"run_id"`
	Today   string         `json:"today"`
	Summary engine.Summary `json:"summary"`
}

func runResponse(res *engine.Result) RunResponse {
	return RunResponse{RunID: res.RunID, Today: res.Today.Format("2006-01-02"), Summary: res.Summary}
}

// GetLatestRun returns the summary of the latest run.
//
//	GET /api/runs/latest
func (h *Handlers) GetLatestRun(w http.ResponseWriter, _ *http.Request) {
	res := h.runner.Latest()
	if res == nil {
		httputil.NotFound(w, "no run yet")
		return
	}
	httputil.OK(w, runResponse(res))
}

// RunRequest optionally pins the run date.
type RunRequest struct {
	Today string `json:"today"`
}

// TriggerRun scores the ledger synchronously.
//
//	POST /api/runs
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	today := datanorm.Day(h.now())
	if req.Today != "" {
		d, err := time.Parse("2006-01-02", req.Today)
		if err != nil {
			httputil.BadRequest(w, "today must be YYYY-MM-DD")
			return
		}
		today = d
	}

	res, err := h.runner.Run(r.Context(), today)
	if errors.Is(err, runner.ErrRunInProgress) {
		httputil.Conflict(w, "a run is already in progress")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	logger.Info("run finished", "run_id", res.RunID, "today", res.Today.Format("2006-01-02"), "worklist", res.Summary.Worklist)
	httputil.OK(w, runResponse(res))
}
