package scoring

import (
	"math"

	"github.com/ignite/customer-alerts/internal/config"
)

// Timing reasons for a zero boost.
const (
	TimingDisabled      = "disabled"
	TimingMissingInputs = "missing_inputs"
	TimingFewOrders     = "few_orders"
	TimingHighReturns   = "high_return_rate"
	TimingExchange      = "exchange"
	TimingOutsideWindow = "outside_window"
)

// Timing is the repurchase-cycle bonus.
type Timing struct {
	Boost    float64
	Eligible bool
	Reason   string  // why Boost is 0, empty otherwise
	Distance float64 // |days - cycle| / radius
	Lower    float64
	Upper    float64
}

// TimingBoost gives peak × exp(-k × distance²) when days-since-last-order
// lies within cycle × (1 ± w), and 0 outside.
func TimingBoost(c *Customer, cfg config.TimingWindow) Timing {
	switch {
	case !cfg.Enabled:
		return Timing{Reason: TimingDisabled}
	case !c.HasDays || !c.Thresholds.HasPersonalCycle:
		return Timing{Reason: TimingMissingInputs}
	case c.Stats.Orders < cfg.MinOrders:
		return Timing{Reason: TimingFewOrders}
	case c.HasReturnRate && c.ReturnRate > cfg.MaxReturnRate:
		return Timing{Reason: TimingHighReturns}
	case c.Stats.HasExchange():
		return Timing{Reason: TimingExchange}
	}

	cycle := c.Thresholds.PersonalCycle
	radius := cycle * cfg.WindowPercentage
	t := Timing{Eligible: true, Lower: cycle - radius, Upper: cycle + radius}
	if radius <= 0 {
		t.Reason = TimingOutsideWindow
		return t
	}
	t.Distance = math.Abs(float64(c.DaysSince)-cycle) / radius
	if t.Distance > 1 {
		t.Reason = TimingOutsideWindow
		return t
	}
	t.Boost = cfg.PeakBoost * math.Exp(-cfg.Sharpness*t.Distance*t.Distance)
	return t
}
