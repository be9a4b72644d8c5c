// Package actionlist decides which scored customers go on the contact
// worklist and in what order.
package actionlist

import (
	"sort"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/customer"
	"github.com/ignite/customer-alerts/internal/scoring"
)

// Decision records why a customer is or is not on the worklist.
type Decision string

const (
	Included         Decision = "included"
	IncludedCooldown Decision = "included_cooldown"
	NoTrigger        Decision = "no_trigger"
	NoReply          Decision = "no_reply"
	GlobalCooldown   Decision = "global_cooldown"
	RecentPurchase   Decision = "recent_purchase"
	HighReturn       Decision = "high_return"
	SingleOrder      Decision = "single_order_policy"
	PresumedLost     Decision = "presumed_lost"
)

// InWorklist reports whether the decision puts the customer on the list.
func (d Decision) InWorklist() bool {
	return d == Included || d == IncludedCooldown
}

// Item is one worklist entry.
type Item struct {
	Customer  *scoring.Customer
	List      string
	Contact   contactlog.Entry
	Contacted bool
	Triggers  []string
}

// Worklist is the builder's output.
type Worklist struct {
	Items     []Item
	Decisions map[string]Decision // by customer key
}

// Trigger names, as reported on action rows.
const (
	TriggerLabel   = "lifecycle_label"
	TriggerScore   = "score"
	TriggerOrders  = "order_count"
	TriggerGrowth  = "growth_type"
	triggerTagPref = "tag:"
)

// Build filters and orders customers. customers must only hold
// identities with at least one valid order.
func Build(customers []*scoring.Customer, contacts contactlog.Log, cfg *config.Scoring, today time.Time) Worklist {
	wl := Worklist{Decisions: make(map[string]Decision, len(customers))}
	f := cfg.Filters

	for _, c := range customers {
		entry, contacted := contacts.Lookup(c.Stats.Phone)
		cooling := contacted && inCooldown(entry.LastContact, today, f.CooldownDays)

		if cooling && f.CooldownScope == config.CooldownScopeGlobal {
			wl.Decisions[c.Stats.Key] = GlobalCooldown
			continue
		}
		triggers := Triggers(c, f.AnniversaryOnly)
		if len(triggers) == 0 {
			wl.Decisions[c.Stats.Key] = NoTrigger
			continue
		}
		if contacted && entry.NoReply() {
			wl.Decisions[c.Stats.Key] = NoReply
			continue
		}

		item := Item{Customer: c, List: c.List, Contact: entry, Contacted: contacted, Triggers: triggers}
		if cooling {
			item.List = scoring.ListCooldown
			wl.Decisions[c.Stats.Key] = IncludedCooldown
			wl.Items = append(wl.Items, item)
			continue
		}
		if d := eligibility(c, cfg, today); d != Included {
			wl.Decisions[c.Stats.Key] = d
			continue
		}
		wl.Decisions[c.Stats.Key] = Included
		wl.Items = append(wl.Items, item)
	}

	sort.SliceStable(wl.Items, func(i, j int) bool {
		return Less(wl.Items[i].Customer, wl.Items[j].Customer)
	})
	return wl
}

// Triggers lists every reason a customer qualifies for outreach. In
// anniversary-only mode only the anniversary tag qualifies.
func Triggers(c *scoring.Customer, anniversaryOnly bool) []string {
	if anniversaryOnly {
		if scoring.HasTag(c.Tags, scoring.TagAnniversary) {
			return []string{triggerTagPref + string(scoring.TagAnniversary)}
		}
		return nil
	}
	var out []string
	for _, t := range c.Tags {
		out = append(out, triggerTagPref+string(t))
	}
	if l := c.Lifecycle.Label; l == scoring.LabelStar || l == scoring.LabelPotential {
		out = append(out, TriggerLabel)
	}
	if c.Priority.Score >= 50 {
		out = append(out, TriggerScore)
	}
	if c.Stats.Orders >= 5 {
		out = append(out, TriggerOrders)
	}
	if g := c.Lifecycle.GrowthType; g == scoring.GrowthGrowing || g == scoring.GrowthHighPotentialNew {
		out = append(out, TriggerGrowth)
	}
	return out
}

func eligibility(c *scoring.Customer, cfg *config.Scoring, today time.Time) Decision {
	f := cfg.Filters
	if c.HasDays && c.DaysSince < f.ExcludeRecentDays {
		return RecentPurchase
	}
	if !f.AllowHighReturn && c.HasReturnRate && c.ReturnRate >= f.HighReturnRate {
		return HighReturn
	}
	if c.Stats.Orders == 1 && !singleOrderAllowed(c, cfg.SingleOrder, today) {
		return SingleOrder
	}
	if c.Lifecycle.Label != scoring.LabelStar && c.HasDays && c.DaysSince > 3*c.Thresholds.LongTerm {
		return PresumedLost
	}
	return Included
}

func singleOrderAllowed(c *scoring.Customer, p config.SingleOrderPolicy, today time.Time) bool {
	last := c.Stats.LastOrder
	if last.IsZero() {
		return false
	}
	switch p.Mode {
	case config.SingleOrderWithinDays:
		return c.HasDays && c.DaysSince <= p.Days
	default:
		prev := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return last.Year() == prev.Year() && last.Month() == prev.Month()
	}
}

// inCooldown reports a contact 0 to days-1 days before today.
func inCooldown(last, today time.Time, days int) bool {
	if days <= 0 || last.IsZero() {
		return false
	}
	age := customer.DaysBetween(last, today)
	return age >= 0 && age < days
}

// Less orders by score descending, then order count descending, return
// rate ascending with unknown rates last, AOV descending and finally
// identity key.
func Less(a, b *scoring.Customer) bool {
	if a.Priority.Score != b.Priority.Score {
		return a.Priority.Score > b.Priority.Score
	}
	if a.Stats.Orders != b.Stats.Orders {
		return a.Stats.Orders > b.Stats.Orders
	}
	if a.HasReturnRate != b.HasReturnRate {
		return a.HasReturnRate
	}
	if a.ReturnRate != b.ReturnRate {
		return a.ReturnRate < b.ReturnRate
	}
	if aa, ba := a.Stats.AOV(), b.Stats.AOV(); aa != ba {
		return aa > ba
	}
	return a.Stats.Key < b.Stats.Key
}
