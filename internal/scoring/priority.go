package scoring

import (
	"math"

	"github.com/ignite/customer-alerts/internal/config"
)

// Rule is one named additive adjustment. Rules run in list order and all
// of them are evaluated; a rule returning 0 did not apply.
type Rule struct {
	Name  string
	Apply func(c *Customer, cfg *config.Scoring) float64
}

// Adjustment is a rule that fired.
type Adjustment struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Priority is the scored outcome with its components.
type Priority struct {
	Margin        float64
	EstReturnRate float64
	TouchCost     float64
	Base          float64
	Confidence    float64
	Adjustments   []Adjustment
	Raw           float64
	Score         float64
}

// Rule names, as reported on action rows.
const (
	RuleCLVTier         = "clv_tier"
	RuleReturnRate      = "return_rate"
	RuleAOV             = "aov"
	RuleActivity        = "activity"
	RulePlatformQuality = "platform_quality"
	RuleHighFrequency   = "high_frequency"
	RuleSuperVIP        = "super_vip"
	RuleTimingWindow    = "timing_window"
	RuleExchangePenalty = "exchange_penalty"
	RuleLongDormant     = "long_dormant"
)

// Rules is the boost/penalty list in evaluation order.
var Rules = []Rule{
	{RuleCLVTier, clvTierBoost},
	{RuleReturnRate, returnRateBoost},
	{RuleAOV, aovBoost},
	{RuleActivity, activityBoost},
	{RulePlatformQuality, platformQualityBoost},
	{RuleHighFrequency, highFrequencyBoost},
	{RuleSuperVIP, superVIPBoost},
	{RuleTimingWindow, timingWindowBoost},
	{RuleExchangePenalty, exchangePenalty},
	{RuleLongDormant, longDormantPenalty},
}

// ScorePriority computes base × confidence plus every rule, clamped to
// [priority_min, priority_max] and rounded to two decimals.
func ScorePriority(c *Customer, cfg *config.Scoring) Priority {
	s := c.Stats
	cat := c.Thresholds.Category
	var p Priority

	p.Margin = s.AvgProfit()
	if p.Margin <= 0 {
		p.Margin = s.AOV() * cat.GrossMargin
	}
	if cat.MaxEstimatedMargin > 0 {
		p.Margin = math.Min(p.Margin, cat.MaxEstimatedMargin)
	}

	switch {
	case c.HasReturnRate && s.Orders >= 3:
		p.EstReturnRate = 0.7*c.ReturnRate + 0.3*cat.ExpectedReturnRate
	case c.HasReturnRate:
		p.EstReturnRate = math.Max(c.ReturnRate, cat.ExpectedReturnRate)
	default:
		p.EstReturnRate = cat.ExpectedReturnRate
	}

	p.TouchCost = cfg.PlatformTouchCost(s.MainPlatform(), cat.TouchCost)
	p.Base = c.Uplift.Value*p.Margin*(1-p.EstReturnRate) - p.TouchCost
	p.Confidence = cfg.OrdersDampening(s.Orders)

	p.Raw = p.Base * p.Confidence
	for _, r := range Rules {
		if !cfg.RuleEnabled(r.Name) {
			continue
		}
		if v := r.Apply(c, cfg); v != 0 {
			p.Adjustments = append(p.Adjustments, Adjustment{Name: r.Name, Value: round2(v)})
			p.Raw += v
		}
	}

	d := cfg.Defaults
	p.Score = round2(math.Max(d.PriorityMin, math.Min(p.Raw, d.PriorityMax)))
	return p
}

func clvTierBoost(c *Customer, _ *config.Scoring) float64 {
	switch {
	case c.Stats.Orders >= 10:
		return 40
	case c.Lifecycle.Label == LabelStar:
		return 30
	}
	return 0
}

func returnRateBoost(c *Customer, _ *config.Scoring) float64 {
	if !c.HasReturnRate {
		return 0
	}
	switch rr := c.ReturnRate; {
	case rr == 0:
		return 20
	case rr < 0.10:
		return 10
	case rr < 0.20:
		return 0
	case rr < 0.30:
		return -20
	case rr < 0.49:
		return -50
	}
	return -80
}

func aovBoost(c *Customer, _ *config.Scoring) float64 {
	switch aov := c.Stats.AOV(); {
	case aov >= 1000:
		return 25
	case aov >= 600:
		return 15
	case aov >= 300:
		return 5
	}
	return 0
}

func activityBoost(c *Customer, _ *config.Scoring) float64 {
	if !c.HasDays || c.DaysSince >= 45 {
		return 0
	}
	if c.HasReturnRate && c.ReturnRate >= 0.2 {
		return 0
	}
	switch {
	case c.Stats.Orders >= 5:
		return 50
	case c.Stats.Orders >= 3:
		return 30
	}
	return 0
}

func platformQualityBoost(c *Customer, cfg *config.Scoring) float64 {
	return cfg.PlatformQualityBoost(c.Stats.MainPlatform())
}

func highFrequencyBoost(c *Customer, _ *config.Scoring) float64 {
	th := c.Thresholds
	if !th.HasPersonalCycle || th.PersonalCycle >= 30 || c.Stats.Orders < 3 {
		return 0
	}
	switch aov := c.Stats.AOV(); {
	case aov >= 500:
		return 60
	case aov >= 300:
		return 40
	}
	return 0
}

func superVIPBoost(c *Customer, _ *config.Scoring) float64 {
	if c.Stats.HasExchange() || !c.HasReturnRate {
		return 0
	}
	orders, rr := c.Stats.Orders, c.ReturnRate
	switch {
	case orders >= 10 && rr < 0.15:
		return 80
	case orders >= 7 && rr < 0.2:
		return 60
	case orders >= 5 && rr < 0.1:
		return 40
	}
	return 0
}

func timingWindowBoost(c *Customer, _ *config.Scoring) float64 {
	return c.Timing.Boost
}

func exchangePenalty(c *Customer, _ *config.Scoring) float64 {
	if !c.Stats.HasExchange() {
		return 0
	}
	switch n := c.Stats.EffectiveOrders(); {
	case n <= 1:
		return -200
	case n == 2:
		return -150
	case n <= 4:
		return -100
	}
	return -50
}

func longDormantPenalty(c *Customer, _ *config.Scoring) float64 {
	if c.Stats.Orders < 2 || c.Stats.Orders > 4 || !c.HasDays {
		return 0
	}
	switch d := c.DaysSince; {
	case d >= 365:
		return -100
	case d >= 270:
		return -60
	case d >= 180:
		return -40
	}
	return 0
}
