package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/ignite/customer-alerts/internal/actionlist"
	"github.com/ignite/customer-alerts/internal/scoring"
)

// OverviewColumns is the column order of an overview export. Downstream
// renderers depend on it; append only.
var OverviewColumns = []string{
	"key", "name", "phone", "address", "owner", "platform", "preferred_item", "category",
	"orders", "gross", "net", "profit", "aov", "refunds", "refund_amount", "return_rate",
	"cancellations", "exchanges", "effective_orders",
	"first_order", "last_order", "days_since", "personal_cycle_days",
	"long_term_threshold", "short_term_threshold",
	"recent_30", "recent_90", "prev_90", "recent_180", "recent_365",
	"uplift", "timing_boost", "clv_score", "potential_label", "growth_type",
	"base_score", "confidence", "priority_score", "priority_tier", "customer_list",
	"customer_value", "risk_tags",
}

// OverviewRow is every computed metric of one customer.
type OverviewRow struct {
	Key             string   `json:"key"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	Owner           string   `json:"owner"`
	Platform        string   `json:"platform"`
	PreferredItem   string   `json:"preferred_item"`
	Category        string   `json:"category"`
	Orders          int      `json:"orders"`
	Gross           float64  `json:"gross"`
	Net             float64  `json:"net"`
	Profit          float64  `json:"profit"`
	AOV             float64  `json:"aov"`
	Refunds         int      `json:"refunds"`
	RefundAmount    float64  `json:"refund_amount"`
	ReturnRate      *float64 `json:"return_rate"`
	Cancellations   int      `json:"cancellations"`
	Exchanges       int      `json:"exchanges"`
	EffectiveOrders int      `json:"effective_orders"`
	FirstOrder      string   `json:"first_order"`
	LastOrder       string   `json:"last_order"`
	DaysSince       *int     `json:"days_since"`
	PersonalCycle   *float64 `json:"personal_cycle_days"`
	LongTerm        int      `json:"long_term_threshold"`
	ShortTerm       int      `json:"short_term_threshold"`
	Recent30        float64  `json:"recent_30"`
	Recent90        float64  `json:"recent_90"`
	Prev90          float64  `json:"prev_90"`
	Recent180       float64  `json:"recent_180"`
	Recent365       float64  `json:"recent_365"`
	Uplift          float64  `json:"uplift"`
	TimingBoost     float64  `json:"timing_boost"`
	CLVScore        float64  `json:"clv_score"`
	PotentialLabel  string   `json:"potential_label"`
	GrowthType      string   `json:"growth_type"`
	BaseScore       float64  `json:"base_score"`
	Confidence      float64  `json:"confidence"`
	PriorityScore   float64  `json:"priority_score"`
	PriorityTier    string   `json:"priority_tier"`
	CustomerList    string   `json:"customer_list"`
	CustomerValue   string   `json:"customer_value"`
	RiskTags        []string `json:"risk_tags"`
}

func newOverviewRow(c *scoring.Customer) OverviewRow {
	s := c.Stats
	r := OverviewRow{
		Key:             s.Key,
		Name:            s.Name,
		Phone:           s.Phone,
		Address:         s.Address,
		Owner:           s.MainOwner(),
		Platform:        s.MainPlatform(),
		PreferredItem:   s.PreferredItem(),
		Category:        c.Thresholds.Category.Name,
		Orders:          s.Orders,
		Gross:           round2(s.Gross),
		Net:             round2(s.Net),
		Profit:          round2(s.Profit),
		AOV:             round2(s.AOV()),
		Refunds:         s.Refunds,
		RefundAmount:    round2(s.RefundAmount),
		Cancellations:   s.Cancellations,
		Exchanges:       s.Exchanges,
		EffectiveOrders: s.EffectiveOrders(),
		FirstOrder:      day(s.FirstOrder),
		LastOrder:       day(s.LastOrder),
		LongTerm:        c.Thresholds.LongTerm,
		ShortTerm:       c.Thresholds.ShortTerm,
		Recent30:        round2(c.Windows.Last30),
		Recent90:        round2(c.Windows.Last90),
		Prev90:          round2(c.Windows.Prev90),
		Recent180:       round2(c.Windows.Last180),
		Recent365:       round2(c.Windows.Last365),
		Uplift:          round2(c.Uplift.Value),
		TimingBoost:     round2(c.Timing.Boost),
		CLVScore:        c.Lifecycle.Score,
		PotentialLabel:  c.Lifecycle.Label,
		GrowthType:      c.Lifecycle.GrowthType,
		BaseScore:       round2(c.Priority.Base),
		Confidence:      c.Priority.Confidence,
		PriorityScore:   c.Priority.Score,
		PriorityTier:    c.Tier,
		CustomerList:    c.List,
		CustomerValue:   c.ValueTier,
		RiskTags:        tagStrings(c.Tags),
	}
	if c.HasReturnRate {
		rr := round4(c.ReturnRate)
		r.ReturnRate = &rr
	}
	if c.HasDays {
		d := c.DaysSince
		r.DaysSince = &d
	}
	if c.Thresholds.HasPersonalCycle {
		pc := round2(c.Thresholds.PersonalCycle)
		r.PersonalCycle = &pc
	}
	return r
}

// Values renders the row in OverviewColumns order.
func (r OverviewRow) Values() []string {
	return []string{
		r.Key, r.Name, r.Phone, r.Address, r.Owner, r.Platform, r.PreferredItem, r.Category,
		strconv.Itoa(r.Orders), num(r.Gross), num(r.Net), num(r.Profit), num(r.AOV),
		strconv.Itoa(r.Refunds), num(r.RefundAmount), optNum(r.ReturnRate),
		strconv.Itoa(r.Cancellations), strconv.Itoa(r.Exchanges), strconv.Itoa(r.EffectiveOrders),
		r.FirstOrder, r.LastOrder, optInt(r.DaysSince), optNum(r.PersonalCycle),
		strconv.Itoa(r.LongTerm), strconv.Itoa(r.ShortTerm),
		num(r.Recent30), num(r.Recent90), num(r.Prev90), num(r.Recent180), num(r.Recent365),
		num(r.Uplift), num(r.TimingBoost), num(r.CLVScore), r.PotentialLabel, r.GrowthType,
		num(r.BaseScore), num(r.Confidence), num(r.PriorityScore), r.PriorityTier, r.CustomerList,
		r.CustomerValue, strings.Join(r.RiskTags, "|"),
	}
}

// ActionColumns is the column order of a worklist export.
var ActionColumns = []string{
	"key", "name", "phone", "owner", "platform", "priority_score", "priority_tier",
	"customer_list", "customer_value", "risk_tags", "triggers", "recommended_action",
	"explanation", "potential_label", "growth_type", "clv_score", "orders", "net", "aov",
	"return_rate", "days_since", "personal_cycle_days", "timing_boost", "uplift",
	"adjustments", "last_contact", "reply_status", "contact_note", "next_contact", "happiness",
}

// ActionRow is one worklist entry ready for display.
type ActionRow struct {
	Key               string               `json:"key"`
	Name              string               `json:"name"`
	Phone             string               `json:"phone"`
	Owner             string               `json:"owner"`
	Platform          string               `json:"platform"`
	PriorityScore     float64              `json:"priority_score"`
	PriorityTier      string               `json:"priority_tier"`
	CustomerList      string               `json:"customer_list"`
	CustomerValue     string               `json:"customer_value"`
	RiskTags          []string             `json:"risk_tags"`
	Triggers          []string             `json:"triggers"`
	RecommendedAction string               `json:"recommended_action"`
	Explanation       string               `json:"explanation"`
	PotentialLabel    string               `json:"potential_label"`
	GrowthType        string               `json:"growth_type"`
	CLVScore          float64              `json:"clv_score"`
	Orders            int                  `json:"orders"`
	Net               float64              `json:"net"`
	AOV               float64              `json:"aov"`
	ReturnRate        *float64             `json:"return_rate"`
	DaysSince         *int                 `json:"days_since"`
	PersonalCycle     *float64             `json:"personal_cycle_days"`
	TimingBoost       float64              `json:"timing_boost"`
	Uplift            float64              `json:"uplift"`
	Adjustments       []scoring.Adjustment `json:"adjustments"`
	LastContact       string               `json:"last_contact"`
	ReplyStatus       string               `json:"reply_status"`
	ContactNote       string               `json:"contact_note"`
	NextContact       string               `json:"next_contact"`
	Happiness         *float64             `json:"happiness"`
}

func (e *Engine) newActionRow(it actionlist.Item, ov OverviewRow) ActionRow {
	c := it.Customer
	r := ActionRow{
		Key:               ov.Key,
		Name:              ov.Name,
		Phone:             ov.Phone,
		Owner:             ov.Owner,
		Platform:          ov.Platform,
		PriorityScore:     ov.PriorityScore,
		PriorityTier:      ov.PriorityTier,
		CustomerList:      it.List,
		CustomerValue:     ov.CustomerValue,
		RiskTags:          ov.RiskTags,
		Triggers:          it.Triggers,
		RecommendedAction: e.playbook.Action(c, it.List, it.Contact),
		Explanation:       e.playbook.Explanation(c, it.List, it.Contact),
		PotentialLabel:    ov.PotentialLabel,
		GrowthType:        ov.GrowthType,
		CLVScore:          ov.CLVScore,
		Orders:            ov.Orders,
		Net:               ov.Net,
		AOV:               ov.AOV,
		ReturnRate:        ov.ReturnRate,
		DaysSince:         ov.DaysSince,
		PersonalCycle:     ov.PersonalCycle,
		TimingBoost:       ov.TimingBoost,
		Uplift:            ov.Uplift,
		Adjustments:       c.Priority.Adjustments,
	}
	if it.Contacted {
		ct := it.Contact
		r.LastContact = day(ct.LastContact)
		r.ReplyStatus = ct.ReplyStatus
		r.ContactNote = ct.Note
		r.NextContact = day(ct.NextContact)
		if ct.Owner != "" {
			r.Owner = ct.Owner
		}
		if ct.HasHappiness {
			h := ct.Happiness
			r.Happiness = &h
		}
	}
	return r
}

// Values renders the row in ActionColumns order.
func (r ActionRow) Values() []string {
	adj := make([]string, len(r.Adjustments))
	for i, a := range r.Adjustments {
		adj[i] = a.Name + ":" + num(a.Value)
	}
	return []string{
		r.Key, r.Name, r.Phone, r.Owner, r.Platform, num(r.PriorityScore), r.PriorityTier,
		r.CustomerList, r.CustomerValue, strings.Join(r.RiskTags, "|"), strings.Join(r.Triggers, "|"),
		r.RecommendedAction, r.Explanation, r.PotentialLabel, r.GrowthType, num(r.CLVScore),
		strconv.Itoa(r.Orders), num(r.Net), num(r.AOV), optNum(r.ReturnRate), optInt(r.DaysSince),
		optNum(r.PersonalCycle), num(r.TimingBoost), num(r.Uplift), strings.Join(adj, "|"),
		r.LastContact, r.ReplyStatus, r.ContactNote, r.NextContact, optNum(r.Happiness),
	}
}

func tagStrings(tags []scoring.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
