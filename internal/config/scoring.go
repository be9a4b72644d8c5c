package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Single-order inclusion modes.
const (
	SingleOrderPreviousMonth = "previous_month"
	SingleOrderWithinDays    = "within_days"
)

// Cooldown scopes.
const (
	CooldownScopeAction = "action"
	CooldownScopeGlobal = "global"
)

// Scoring is the validated scoring model. It is populated once by Load
// and treated as read-only afterwards.
type Scoring struct {
	Defaults      Defaults           `yaml:"defaults"`
	Filters       Filters            `yaml:"filters"`
	CLVWeights    CLVWeights         `yaml:"clv_weights"`
	CustomerTiers CustomerTiers      `yaml:"customer_tiers"`
	PriorityBoost PriorityBoost      `yaml:"priority_score_boost"`
	TimingWindow  TimingWindow       `yaml:"timing_window_boost"`
	Premium       PremiumUplift      `yaml:"premium_uplift"`
	SKUAlerts     SKUAlerts          `yaml:"sku_alerts"`
	Categories    Categories         `yaml:"categories"`
	PlatformTouch map[string]float64 `yaml:"platform_touch_cost"`
	Dampening     map[string]float64 `yaml:"orders_dampening"`
	SingleOrder   SingleOrderPolicy  `yaml:"single_order"`
	Playbook      Playbook           `yaml:"playbook"`
}

// Defaults are the global fallbacks for every category-level value.
type Defaults struct {
	GrossMargin        float64 `yaml:"gross_margin"`
	CategoryCycleDays  float64 `yaml:"category_cycle_days"`
	ExpectedReturnRate float64 `yaml:"expected_return_rate"`
	TouchCost          float64 `yaml:"touch_cost"`
	UpliftBase         float64 `yaml:"uplift_base"`
	UpliftFloor        float64 `yaml:"uplift_floor"`
	MaxEstimatedUplift float64 `yaml:"max_estimated_uplift"`
	MaxEstimatedMargin float64 `yaml:"max_estimated_margin"` // 0 means uncapped
	PriorityMin        float64 `yaml:"priority_min"`
	PriorityMax        float64 `yaml:"priority_max"`
}

// Filters drive churn thresholds, risk tags and worklist eligibility.
type Filters struct {
	DefaultChurnDays      int     `yaml:"default_churn_days"`
	ChurnMultiplier       float64 `yaml:"churn_multiplier"`
	CooldownDays          int     `yaml:"cooldown_days"`
	CooldownScope         string  `yaml:"cooldown_scope"`
	ExcludeRecentDays     int     `yaml:"exclude_recent_days"`
	AllowHighReturn       bool    `yaml:"allow_high_return"`
	HighReturnRate        float64 `yaml:"high_return_rate"`
	AnniversaryOnly       bool    `yaml:"anniversary_only"`
	SpendDropRatio        float64 `yaml:"spend_drop_ratio"`
	RefundSpikeDays       int     `yaml:"refund_spike_days"`
	RefundSpikeCount      int     `yaml:"refund_spike_count"`
	AnniversaryWindowDays int     `yaml:"anniversary_window_days"`
}

// CLVWeights weight the three lifecycle value components.
type CLVWeights struct {
	Historical float64 `yaml:"historical"`
	Activity   float64 `yaml:"activity"`
	Growth     float64 `yaml:"growth"`
}

// CustomerTiers classify customers by cumulative net spend.
type CustomerTiers struct {
	HighValue struct {
		CumulativeThreshold float64 `yaml:"cumulative_threshold"`
	} `yaml:"high_value"`
	MediumValue struct {
		CumulativeMin float64 `yaml:"cumulative_min"`
		CumulativeMax float64 `yaml:"cumulative_max"`
	} `yaml:"medium_value"`
}

// PriorityBoost tunes the additive rule list.
type PriorityBoost struct {
	PlatformQuality map[string]float64 `yaml:"platform_quality"`
	DisabledRules   []string           `yaml:"disabled_rules"`
}

// TimingWindow configures the repurchase-cycle timing bonus.
type TimingWindow struct {
	Enabled          bool    `yaml:"enabled"`
	WindowPercentage float64 `yaml:"window_percentage"`
	PeakBoost        float64 `yaml:"peak_boost"`
	MinOrders        int     `yaml:"min_orders"`
	MaxReturnRate    float64 `yaml:"max_return_rate"`
	Sharpness        float64 `yaml:"sharpness"`
}

// PremiumUplift loosens the uplift ceiling for proven customers.
type PremiumUplift struct {
	Enabled       bool    `yaml:"enabled"`
	Ceiling       float64 `yaml:"ceiling"`
	MinOrders     int     `yaml:"min_orders"`
	MaxReturnRate float64 `yaml:"max_return_rate"`
	MinSpanDays   int     `yaml:"min_span_days"`
}

// SKUAlerts drives the per-item push and watch lists.
type SKUAlerts struct {
	PushMinOrders     int     `yaml:"push_min_orders"`
	PushMaxReturnRate float64 `yaml:"push_max_return_rate"`
	PushLookbackDays  int     `yaml:"push_lookback_days"`
	// LowMarginRate lists items whose profit/net falls below it; 0 disables.
	LowMarginRate     float64 `yaml:"low_margin_rate"`
}

// SingleOrderPolicy gates customers that ordered exactly once.
type SingleOrderPolicy struct {
	Mode string `yaml:"mode"`
	Days int    `yaml:"days"`
}

// Playbook overrides the recommended-action templates per customer list.
type Playbook struct {
	Templates   map[string]string `yaml:"templates"`
	Explanation string            `yaml:"explanation"`
}

// DefaultScoring returns the built-in model. Load decodes the file on
// top of it, so absent keys keep these values.
func DefaultScoring() Scoring {
	return Scoring{
		Defaults: Defaults{
			GrossMargin:        0.35,
			CategoryCycleDays:  45,
			ExpectedReturnRate: 0.15,
			TouchCost:          5,
			UpliftBase:         1.0,
			UpliftFloor:        0.3,
			MaxEstimatedUplift: 2.5,
			PriorityMin:        -200,
			PriorityMax:        300,
		},
		Filters: Filters{
			DefaultChurnDays:      60,
			ChurnMultiplier:       1.5,
			CooldownScope:         CooldownScopeAction,
			ExcludeRecentDays:     3,
			HighReturnRate:        0.49,
			SpendDropRatio:        0.5,
			RefundSpikeDays:       30,
			RefundSpikeCount:      2,
			AnniversaryWindowDays: 7,
		},
		CLVWeights: CLVWeights{Historical: 0.4, Activity: 0.3, Growth: 0.3},
		CustomerTiers: func() CustomerTiers {
			var t CustomerTiers
			t.HighValue.CumulativeThreshold = 3000
			t.MediumValue.CumulativeMin = 1000
			t.MediumValue.CumulativeMax = 3000
			return t
		}(),
		PriorityBoost: PriorityBoost{
			PlatformQuality: map[string]float64{
				"微信":  15,
				"小红书": 10,
				"抖音":  -5,
				"拼多多": -10,
			},
		},
		TimingWindow: TimingWindow{
			Enabled:          true,
			WindowPercentage: 0.2,
			PeakBoost:        40,
			MinOrders:        2,
			MaxReturnRate:    0.3,
			Sharpness:        2.0,
		},
		Premium: PremiumUplift{
			Enabled:       true,
			Ceiling:       3.0,
			MinOrders:     5,
			MaxReturnRate: 0.15,
			MinSpanDays:   180,
		},
		SKUAlerts: SKUAlerts{
			PushMinOrders:     3,
			PushMaxReturnRate: 0.2,
			PushLookbackDays:  30,
			LowMarginRate:     0.15,
		},
		PlatformTouch: map[string]float64{},
		Dampening: map[string]float64{
			"1":       0.5,
			"2":       0.7,
			"3":       0.85,
			"default": 1.0,
		},
		SingleOrder: SingleOrderPolicy{Mode: SingleOrderPreviousMonth, Days: 30},
	}
}

// Normalize repairs inverted bounds so that min ≤ max everywhere.
func (s *Scoring) Normalize() {
	d := &s.Defaults
	d.PriorityMin, d.PriorityMax = math.Min(d.PriorityMin, d.PriorityMax), math.Max(d.PriorityMin, d.PriorityMax)
	d.UpliftFloor, d.MaxEstimatedUplift = math.Min(d.UpliftFloor, d.MaxEstimatedUplift), math.Max(d.UpliftFloor, d.MaxEstimatedUplift)
	m := &s.CustomerTiers.MediumValue
	m.CumulativeMin, m.CumulativeMax = math.Min(m.CumulativeMin, m.CumulativeMax), math.Max(m.CumulativeMin, m.CumulativeMax)
	s.Filters.CooldownScope = strings.ToLower(strings.TrimSpace(s.Filters.CooldownScope))
	if s.Filters.CooldownScope == "" {
		s.Filters.CooldownScope = CooldownScopeAction
	}
	s.SingleOrder.Mode = strings.ToLower(strings.TrimSpace(s.SingleOrder.Mode))
	if s.SingleOrder.Mode == "" {
		s.SingleOrder.Mode = SingleOrderPreviousMonth
	}
}

// Validate reports every value the scoring code cannot work with.
func (s *Scoring) Validate() error {
	var errs []error
	if s.Defaults.CategoryCycleDays <= 0 {
		errs = append(errs, fmt.Errorf("defaults.category_cycle_days must be positive, got %v", s.Defaults.CategoryCycleDays))
	}
	if s.Filters.DefaultChurnDays < 0 {
		errs = append(errs, fmt.Errorf("filters.default_churn_days must not be negative, got %d", s.Filters.DefaultChurnDays))
	}
	if s.Filters.ChurnMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("filters.churn_multiplier must be positive, got %v", s.Filters.ChurnMultiplier))
	}
	if s.Filters.CooldownDays < 0 {
		errs = append(errs, fmt.Errorf("filters.cooldown_days must not be negative, got %d", s.Filters.CooldownDays))
	}
	switch s.Filters.CooldownScope {
	case CooldownScopeAction, CooldownScopeGlobal:
	default:
		errs = append(errs, fmt.Errorf("filters.cooldown_scope %q is not one of action, global", s.Filters.CooldownScope))
	}
	switch s.SingleOrder.Mode {
	case SingleOrderPreviousMonth, SingleOrderWithinDays:
	default:
		errs = append(errs, fmt.Errorf("single_order.mode %q is not one of previous_month, within_days", s.SingleOrder.Mode))
	}
	if s.TimingWindow.Enabled && s.TimingWindow.WindowPercentage <= 0 {
		errs = append(errs, fmt.Errorf("timing_window_boost.window_percentage must be positive, got %v", s.TimingWindow.WindowPercentage))
	}
	for _, c := range s.Categories {
		if c.CycleDays != nil && *c.CycleDays <= 0 {
			errs = append(errs, fmt.Errorf("categories.%s.category_cycle_days must be positive, got %v", c.Name, *c.CycleDays))
		}
	}
	for k := range s.Dampening {
		if k == "default" {
			continue
		}
		if _, err := strconv.Atoi(k); err != nil {
			errs = append(errs, fmt.Errorf("orders_dampening key %q is not an order count", k))
		}
	}
	return errors.Join(errs...)
}

// PlatformTouchCost returns the outreach cost for a sales platform,
// or fallback when the platform has no entry.
func (s *Scoring) PlatformTouchCost(platform string, fallback float64) float64 {
	if v, ok := s.PlatformTouch[platform]; ok {
		return v
	}
	return fallback
}

// OrdersDampening returns the confidence weight for an exact order count,
// falling back to the "default" entry and then 1.
func (s *Scoring) OrdersDampening(orders int) float64 {
	if v, ok := s.Dampening[strconv.Itoa(orders)]; ok {
		return v
	}
	if v, ok := s.Dampening["default"]; ok {
		return v
	}
	return 1.0
}

// PlatformQualityBoost returns the fixed per-platform adjustment.
func (s *Scoring) PlatformQualityBoost(platform string) float64 {
	return s.PriorityBoost.PlatformQuality[platform]
}

// RuleEnabled reports whether a named priority rule is active.
func (s *Scoring) RuleEnabled(name string) bool {
	for _, r := range s.PriorityBoost.DisabledRules {
		if r == name {
			return false
		}
	}
	return true
}

// ValueTier buckets cumulative net spend.
func (s *Scoring) ValueTier(net float64) string {
	switch {
	case net >= s.CustomerTiers.HighValue.CumulativeThreshold:
		return "高价值"
	case net >= s.CustomerTiers.MediumValue.CumulativeMin:
		return "中价值"
	default:
		return "普通"
	}
}
