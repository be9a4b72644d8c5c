// Package skualert summarises recent item performance into a push list,
// a high-return watch list, a low-margin list and a per-manufacturer
// rollup.
package skualert

import (
	"math"
	"sort"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/customer"
)

// Item is one product's activity inside the lookback window.
type Item struct {
	Name         string   `json:"item"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Orders       int      `json:"orders"`
	Refunds      int      `json:"refunds"`
	Net          float64  `json:"net"`
	Profit       float64  `json:"profit"`
	Customers    int      `json:"customers"`
	ReturnRate   float64  `json:"return_rate"`
	Margin       *float64 `json:"margin"`
}

// Manufacturer rolls up every item one supplier delivered in the window.
type Manufacturer struct {
	Name       string  `json:"manufacturer"`
	Items      int     `json:"items"`
	Orders     int     `json:"orders"`
	Refunds    int     `json:"refunds"`
	Net        float64 `json:"net"`
	Profit     float64 `json:"profit"`
	ReturnRate float64 `json:"return_rate"`
}

// Report splits items by return rate and margin.
type Report struct {
	Push          []Item         `json:"push"`
	HighReturn    []Item         `json:"high_return"`
	LowMargin     []Item         `json:"low_margin"`
	Manufacturers []Manufacturer `json:"manufacturers"`
}

type itemAcc struct {
	Item
	seen         map[string]bool
	makers       customer.Counter
	costedNet    float64
	costedProfit float64
}

type makerAcc struct {
	Manufacturer
	items customer.Counter
}

// Build aggregates ledger details of every customer. An item qualifies
// for push, high_return and low_margin once it has at least
// push_min_orders valid orders in the window; the manufacturer rollup
// counts every item.
func Build(customers []*customer.Stats, cfg config.SKUAlerts, today time.Time) Report {
	byName := make(map[string]*itemAcc)
	var names []string
	byMaker := make(map[string]*makerAcc)
	var makers []string

	for _, s := range customers {
		for _, d := range s.Details {
			if d.Item == "" {
				continue
			}
			valid := d.Outcome.Has(customer.ValidOrder) && inWindow(d.PayDate, today, cfg.PushLookbackDays)
			refundDate := d.RefundDate
			if refundDate.IsZero() {
				refundDate = d.PayDate
			}
			refund := d.Outcome.Has(customer.Refunded) && inWindow(refundDate, today, cfg.PushLookbackDays)
			if !valid && !refund {
				continue
			}

			a, ok := byName[d.Item]
			if !ok {
				a = &itemAcc{Item: Item{Name: d.Item}, seen: make(map[string]bool)}
				byName[d.Item] = a
				names = append(names, d.Item)
			}
			a.makers.Add(d.Manufacturer)

			var m *makerAcc
			if d.Manufacturer != "" {
				if m, ok = byMaker[d.Manufacturer]; !ok {
					m = &makerAcc{Manufacturer: Manufacturer{Name: d.Manufacturer}}
					byMaker[d.Manufacturer] = m
					makers = append(makers, d.Manufacturer)
				}
				m.items.Add(d.Item)
			}

			if valid {
				a.Orders++
				a.Net += d.Net
				a.Profit += d.Profit
				if d.Costed() {
					a.costedNet += d.Net
					a.costedProfit += d.Profit
				}
				if !a.seen[s.Key] {
					a.seen[s.Key] = true
					a.Customers++
				}
				if m != nil {
					m.Orders++
					m.Net += d.Net
					m.Profit += d.Profit
				}
			}
			if refund {
				a.Refunds++
				if m != nil {
					m.Refunds++
				}
			}
		}
	}

	var r Report
	for _, name := range names {
		a := byName[name]
		if a.Orders < cfg.PushMinOrders {
			continue
		}
		it := a.Item
		it.Manufacturer = a.makers.MostFrequent()
		it.Net = round2(it.Net)
		it.Profit = round2(it.Profit)
		it.ReturnRate = returnRate(it.Refunds, it.Orders)
		if a.costedNet > 0 {
			margin := round4(a.costedProfit / a.costedNet)
			it.Margin = &margin
		}
		if it.ReturnRate <= cfg.PushMaxReturnRate {
			r.Push = append(r.Push, it)
		} else {
			r.HighReturn = append(r.HighReturn, it)
		}
		if it.Margin != nil && *it.Margin < cfg.LowMarginRate {
			r.LowMargin = append(r.LowMargin, it)
		}
	}
	for _, name := range makers {
		m := byMaker[name]
		mf := m.Manufacturer
		mf.Items = m.items.Len()
		mf.Net = round2(mf.Net)
		mf.Profit = round2(mf.Profit)
		mf.ReturnRate = returnRate(mf.Refunds, mf.Orders)
		r.Manufacturers = append(r.Manufacturers, mf)
	}

	sort.SliceStable(r.Push, func(i, j int) bool {
		if r.Push[i].Orders != r.Push[j].Orders {
			return r.Push[i].Orders > r.Push[j].Orders
		}
		return r.Push[i].Net > r.Push[j].Net
	})
	sort.SliceStable(r.HighReturn, func(i, j int) bool {
		return r.HighReturn[i].ReturnRate > r.HighReturn[j].ReturnRate
	})
	sort.SliceStable(r.LowMargin, func(i, j int) bool {
		if *r.LowMargin[i].Margin != *r.LowMargin[j].Margin {
			return *r.LowMargin[i].Margin < *r.LowMargin[j].Margin
		}
		return r.LowMargin[i].Net > r.LowMargin[j].Net
	})
	sort.SliceStable(r.Manufacturers, func(i, j int) bool {
		if r.Manufacturers[i].Orders != r.Manufacturers[j].Orders {
			return r.Manufacturers[i].Orders > r.Manufacturers[j].Orders
		}
		return r.Manufacturers[i].Net > r.Manufacturers[j].Net
	})
	return r
}

// returnRate is refunds per valid order. Refunds without any order in
// the window count as a full return.
func returnRate(refunds, orders int) float64 {
	switch {
	case orders > 0:
		return float64(refunds) / float64(orders)
	case refunds > 0:
		return 1
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func inWindow(d, today time.Time, days int) bool {
	if d.IsZero() {
		return false
	}
	age := customer.DaysBetween(d, today)
	return age >= 0 && (days <= 0 || age < days)
}
