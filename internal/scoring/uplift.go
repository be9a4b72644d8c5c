package scoring

import (
	"math"

	"github.com/ignite/customer-alerts/internal/config"
)

// Uplift is the conversion likelihood multiplier and how it was bounded.
type Uplift struct {
	Value      float64
	Baseline   float64
	Multiplier float64
	VIP        bool
	Premium    bool
	Floor      float64
	Ceiling    float64
}

// IsVIP applies the three VIP rules.
func IsVIP(c *Customer) bool {
	rr, known := c.ReturnRate, c.HasReturnRate
	orders, aov := c.Stats.Orders, c.Stats.AOV()
	switch {
	case orders >= 7 && (rr < 0.2 || !known):
		return true
	case orders >= 5 && known && rr < 0.1 && aov > 400:
		return true
	case orders >= 3 && aov > 500 && (rr < 0.15 || !known):
		return true
	}
	return false
}

// PremiumEligible reports whether the premium ceiling applies.
func PremiumEligible(c *Customer, p config.PremiumUplift) bool {
	if !p.Enabled || c.Stats.Orders < p.MinOrders {
		return false
	}
	if c.HasReturnRate && c.ReturnRate > p.MaxReturnRate {
		return false
	}
	return c.Stats.SpanDays() >= p.MinSpanDays
}

// EstimateUplift computes the recency-curved uplift, clamped to
// [floor, ceiling]. The ceiling is the tighter of the global and
// category caps, raised to the premium ceiling for eligible customers.
func EstimateUplift(c *Customer, cfg *config.Scoring) Uplift {
	d := cfg.Defaults
	u := Uplift{Floor: d.UpliftFloor, Multiplier: 1, VIP: IsVIP(c)}

	u.Baseline = d.UpliftBase
	if c.HasDays && c.Thresholds.LongTerm > 0 {
		u.Baseline += math.Max(0, float64(c.DaysSince)/float64(c.Thresholds.LongTerm)-1)
	}
	if c.HasDays {
		if u.VIP {
			u.Multiplier = vipRecency(c.DaysSince)
		} else {
			u.Multiplier = goldenWindow(c.DaysSince)
		}
	}

	u.Ceiling = d.MaxEstimatedUplift
	if limit := c.Thresholds.Category.MaxEstimatedUplift; limit > 0 {
		u.Ceiling = math.Min(u.Ceiling, limit)
	}
	if PremiumEligible(c, cfg.Premium) {
		u.Premium = true
		u.Ceiling = math.Max(u.Ceiling, cfg.Premium.Ceiling)
	}

	u.Value = math.Max(u.Floor, math.Min(u.Baseline*u.Multiplier, u.Ceiling))
	return u
}

func vipRecency(days int) float64 {
	switch {
	case days <= 30:
		return 0.9
	case days <= 90:
		return 1.1
	case days <= 180:
		return 0.95
	}
	return 0.8
}

// goldenWindow suppresses the first 30 days, peaks across 31-90, decays
// across 91-180 and treats anything older as mostly lost.
func goldenWindow(days int) float64 {
	switch {
	case days <= 30:
		return 0.7
	case days <= 90:
		return lerp(1.3, 1.5, float64(days-31)/59)
	case days <= 180:
		return lerp(1.5, 0.8, float64(days-91)/89)
	}
	return 0.5
}

func lerp(from, to, frac float64) float64 {
	return from + (to-from)*frac
}
