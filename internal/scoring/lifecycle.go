package scoring

import (
	"math"

	"github.com/ignite/customer-alerts/internal/config"
)

// Growth types.
const (
	GrowthGrowing           = "成长型"
	GrowthStable            = "稳定型"
	GrowthDeclining         = "下滑型"
	GrowthDormant           = "休眠型"
	GrowthNew               = "新客型"
	GrowthHighPotentialNew  = "高潜新客"
	highPotentialFirstSpend = 500.0
)

// Potential labels.
const (
	LabelStar      = "明星客户"
	LabelPotential = "潜力客户"
	LabelOrdinary  = "普通客户"
)

// Lifecycle is the composite CLV score and its parts, each 0-100.
type Lifecycle struct {
	Score      float64
	Historical float64
	Activity   float64
	Growth     float64
	Trend      float64
	GrowthType string
	Label      string
}

// LifecycleValue weighs historical value, current activity and growth.
func LifecycleValue(c *Customer, w config.CLVWeights) Lifecycle {
	s := c.Stats
	var lc Lifecycle

	lc.Historical = 50*math.Min(s.Net/10000, 1) + 50*math.Min(float64(s.Orders)/20, 1)

	if c.HasDays {
		lc.Activity = 50 * math.Max(0, 1-float64(c.DaysSince)/180)
	}
	if s.Net > 0 {
		lc.Activity += 50 * math.Min(c.Windows.Last90/s.Net, 1)
	}

	if s.Orders <= 1 {
		lc.Growth = 100 * math.Min(s.SpendWithinFirst(30)/1000, 1)
		lc.GrowthType = GrowthNew
		if s.FirstOrderSpend() > highPotentialFirstSpend {
			lc.GrowthType = GrowthHighPotentialNew
		}
	} else {
		recent, prev := c.Windows.Last90, c.Windows.Prev90
		switch {
		case prev > 0:
			lc.Trend = (recent - prev) / prev
		case recent > 0:
			lc.Trend = 1
		default:
			lc.Trend = -1
		}
		lc.Growth = math.Max(0, math.Min(100, 50+50*lc.Trend))
		switch {
		case recent == 0 && prev == 0:
			lc.GrowthType = GrowthDormant
		case lc.Trend > 0.2:
			lc.GrowthType = GrowthGrowing
		case lc.Trend < -0.2:
			lc.GrowthType = GrowthDeclining
		default:
			lc.GrowthType = GrowthStable
		}
	}

	lc.Score = round2(lc.Historical*w.Historical + lc.Activity*w.Activity + lc.Growth*w.Growth)
	switch {
	case lc.Score >= 70:
		lc.Label = LabelStar
	case lc.Score >= 40 || lc.GrowthType == GrowthGrowing || lc.GrowthType == GrowthHighPotentialNew:
		lc.Label = LabelPotential
	default:
		lc.Label = LabelOrdinary
	}
	return lc
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
