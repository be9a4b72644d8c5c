// Package scoring turns one customer's aggregate into churn thresholds,
// uplift, timing and lifecycle estimates, a clamped priority score and a
// customer list. Every function is pure over (stats, config, today).
package scoring

import (
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/customer"
	"github.com/ignite/customer-alerts/internal/datanorm"
)

// Customer carries one customer through the scoring stages. Stages fill
// their field in Evaluate's order and later stages read earlier ones.
type Customer struct {
	Stats *customer.Stats
	Today time.Time

	DaysSince     int
	HasDays       bool
	ReturnRate    float64
	HasReturnRate bool
	Windows       customer.Windows

	Thresholds Thresholds
	Uplift     Uplift
	Timing     Timing
	Lifecycle  Lifecycle
	Tags       []Tag
	Priority   Priority
	Tier       string
	List       string
	ValueTier  string
}

// Evaluate runs every stage for one customer.
func Evaluate(s *customer.Stats, cfg *config.Scoring, today time.Time) *Customer {
	today = datanorm.Day(today)
	c := &Customer{Stats: s, Today: today}
	c.DaysSince, c.HasDays = s.DaysSinceLast(today)
	c.ReturnRate, c.HasReturnRate = s.ReturnRate()
	c.Windows = customer.TimeWindows(s.History, today)

	c.Thresholds = ResolveThresholds(s, cfg)
	c.Uplift = EstimateUplift(c, cfg)
	c.Timing = TimingBoost(c, cfg.TimingWindow)
	c.Lifecycle = LifecycleValue(c, cfg.CLVWeights)
	c.Tags = RiskTags(c, cfg)
	c.Priority = ScorePriority(c, cfg)
	c.Tier = Tier(c.Priority.Score)
	c.List = CustomerList(c)
	c.ValueTier = cfg.ValueTier(s.Net)
	return c
}
