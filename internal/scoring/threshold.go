package scoring

import (
	"math"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/customer"
)

// Thresholds are a customer's personalized churn bounds.
type Thresholds struct {
	PersonalCycle    float64 // days, 0 when HasPersonalCycle is false
	HasPersonalCycle bool
	Category         config.CategoryProfile
	LongTerm         int
	ShortTerm        int
}

// PersonalCycle is the mean gap between consecutive distinct order days.
// With fewer than two gaps it falls back to span / (orders - 1). Results
// below one day are floored to 1. Customers with fewer than two valid
// orders, or no dated order, have no cycle.
func PersonalCycle(s *customer.Stats) (float64, bool) {
	if s.Orders < 2 || s.LastOrder.IsZero() {
		return 0, false
	}
	var cycle float64
	dates := s.OrderDates()
	if len(dates) >= 3 {
		total := customer.DaysBetween(dates[0], dates[len(dates)-1])
		cycle = float64(total) / float64(len(dates)-1)
	} else {
		cycle = float64(s.SpanDays()) / float64(s.Orders-1)
	}
	if cycle < 1 {
		cycle = 1
	}
	return cycle, true
}

// ResolveThresholds derives the long- and short-term churn thresholds.
// The long-term value is the largest of the global default, the scaled
// category cycle and the scaled personal cycle.
func ResolveThresholds(s *customer.Stats, cfg *config.Scoring) Thresholds {
	th := Thresholds{Category: cfg.Category(s.PreferredItem())}
	th.PersonalCycle, th.HasPersonalCycle = PersonalCycle(s)

	mult := cfg.Filters.ChurnMultiplier
	long := cfg.Filters.DefaultChurnDays
	long = max(long, int(math.Ceil(th.Category.CycleDays*mult)))
	if th.HasPersonalCycle {
		long = max(long, int(math.Ceil(th.PersonalCycle*mult)))
	}
	th.LongTerm = long

	short := long / 2
	if short >= long {
		short = long - 1
	}
	th.ShortTerm = short
	return th
}
