// Package engine runs one scoring pass: ledger rows, the scoring model,
// the contact log and an explicit "today" in; overview rows, worklist
// rows and a per-customer meta map out.
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-alerts/internal/actionlist"
	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/customer"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/playbook"
	"github.com/ignite/customer-alerts/internal/scoring"
	"github.com/ignite/customer-alerts/internal/skualert"
)

// Meta lookup statuses.
const (
	StatusInWorklist     = "in_worklist"
	StatusNotPrioritized = "not_prioritized"
)

// Meta is the snapshot used to resolve a customer outside the worklist.
type Meta struct {
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Orders       int     `json:"orders"`
	LastOrder    string  `json:"last_order"`
	Score        float64 `json:"priority_score"`
	Tier         string  `json:"priority_tier"`
	CustomerList string  `json:"customer_list"`
	Value        string  `json:"customer_value"`
	Status       string  `json:"status"`
	Decision     string  `json:"decision"`
}

// Summary counts what a run saw.
type Summary struct {
	Rows        int `json:"rows"`
	Customers   int `json:"customers"`
	ZeroOrder   int `json:"zero_order"`
	Worklist    int `json:"worklist"`
	Cooldown    int `json:"cooldown"`
	NoReply     int `json:"no_reply"`
	HighPrio    int `json:"high_priority"`
	MidPrio     int `json:"mid_priority"`
	ContactLogs int `json:"contact_log_entries"`
}

// Result is the output of one run. Details holds the ledger lines of
// every identity seen, zero-order ones included.
type Result struct {
	RunID    string                     `json:"run_id"`
	Today    time.Time                  `json:"today"`
	Overview []OverviewRow              `json:"overview"`
	Actions  []ActionRow                `json:"actions"`
	Meta     map[string]Meta            `json:"meta"`
	Details  map[string]CustomerDetails `json:"details"`
	SKU      skualert.Report            `json:"sku"`
	Summary  Summary                    `json:"summary"`
}

// Engine scores ledgers with one model.
type Engine struct {
	cfg      *config.Scoring
	playbook *playbook.Renderer

	// OnRow, when set, is called after every ingested row.
	OnRow func()
}

// New builds an engine for cfg.
func New(cfg *config.Scoring) *Engine {
	return &Engine{cfg: cfg, playbook: playbook.New(cfg.Playbook)}
}

// Run scores rows as of today. It never fails: bad rows were already
// reduced to defaults by the reader.
func (e *Engine) Run(rows []datanorm.OrderRow, contacts contactlog.Log, today time.Time) *Result {
	start := time.Now()
	today = datanorm.Day(today)

	in := customer.NewIngestor()
	for _, r := range rows {
		in.Add(r)
		if e.OnRow != nil {
			e.OnRow()
		}
	}

	res := &Result{
		RunID:   uuid.New().String(),
		Today:   today,
		Meta:    make(map[string]Meta),
		Details: make(map[string]CustomerDetails),
	}
	res.Summary.Rows = len(rows)
	res.Summary.ContactLogs = len(contacts)

	var scored []*scoring.Customer
	for _, s := range in.Customers() {
		res.Details[s.Key] = newCustomerDetails(s)
		if s.Orders == 0 {
			res.Summary.ZeroOrder++
			continue
		}
		scored = append(scored, scoring.Evaluate(s, e.cfg, today))
	}
	res.Summary.Customers = len(scored)

	sort.SliceStable(scored, func(i, j int) bool { return actionlist.Less(scored[i], scored[j]) })

	overview := make(map[string]OverviewRow, len(scored))
	res.Overview = make([]OverviewRow, 0, len(scored))
	for _, c := range scored {
		row := newOverviewRow(c)
		overview[c.Stats.Key] = row
		res.Overview = append(res.Overview, row)
	}

	wl := actionlist.Build(scored, contacts, e.cfg, today)
	res.Actions = make([]ActionRow, 0, len(wl.Items))
	for _, it := range wl.Items {
		row := e.newActionRow(it, overview[it.Customer.Stats.Key])
		res.Actions = append(res.Actions, row)
		if it.List == scoring.ListCooldown {
			res.Summary.Cooldown++
		}
		switch {
		case row.PriorityScore >= 80:
			res.Summary.HighPrio++
		case row.PriorityScore >= 50:
			res.Summary.MidPrio++
		}
	}
	res.Summary.Worklist = len(res.Actions)

	for _, c := range scored {
		d := wl.Decisions[c.Stats.Key]
		if d == actionlist.NoReply {
			res.Summary.NoReply++
		}
		m := Meta{
			Key:          c.Stats.Key,
			Name:         c.Stats.Name,
			Phone:        c.Stats.Phone,
			Orders:       c.Stats.Orders,
			LastOrder:    day(c.Stats.LastOrder),
			Score:        c.Priority.Score,
			Tier:         c.Tier,
			CustomerList: c.List,
			Value:        c.ValueTier,
			Status:       StatusNotPrioritized,
			Decision:     string(d),
		}
		if d == actionlist.IncludedCooldown {
			m.CustomerList = scoring.ListCooldown
		}
		if d.InWorklist() {
			m.Status = StatusInWorklist
		}
		res.Meta[c.Stats.Key] = m
	}

	res.SKU = skualert.Build(in.Customers(), e.cfg.SKUAlerts, today)

	logger.Info("scoring run complete",
		"run_id", res.RunID,
		"today", day(today),
		"rows", res.Summary.Rows,
		"customers", res.Summary.Customers,
		"zero_order", res.Summary.ZeroOrder,
		"worklist", res.Summary.Worklist,
		"cooldown", res.Summary.Cooldown,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
