package scoring

import (
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/customer"
)

// Tag is a risk signal raised for a customer.
type Tag string

const (
	TagChurn           Tag = "流失预警"
	TagSpendDrop       Tag = "消费下滑"
	TagRefundSpike     Tag = "退款激增"
	TagAnniversary     Tag = "周年回访"
	TagHighValueActive Tag = "高价值活跃"
)

// RiskTags raises tags in a fixed order.
func RiskTags(c *Customer, cfg *config.Scoring) []Tag {
	var tags []Tag
	f := cfg.Filters
	s := c.Stats

	if c.HasDays && c.DaysSince >= c.Thresholds.LongTerm {
		tags = append(tags, TagChurn)
	}
	if w := c.Windows; w.Prev90 > 0 && w.Last90 < w.Prev90*(1-f.SpendDropRatio) {
		tags = append(tags, TagSpendDrop)
	}
	if f.RefundSpikeCount > 0 {
		n := 0
		for _, d := range s.RefundDates() {
			if age := customer.DaysBetween(d, c.Today); age >= 0 && age < f.RefundSpikeDays {
				n++
			}
		}
		if n >= f.RefundSpikeCount {
			tags = append(tags, TagRefundSpike)
		}
	}
	if isAnniversary(s.FirstOrder, c.Today, f.AnniversaryWindowDays) {
		tags = append(tags, TagAnniversary)
	}
	if s.Net >= cfg.CustomerTiers.HighValue.CumulativeThreshold && c.HasDays && c.DaysSince <= c.Thresholds.ShortTerm {
		tags = append(tags, TagHighValueActive)
	}
	return tags
}

// isAnniversary reports whether today is within window days of an
// anniversary of the first order, counting only anniversaries in a later
// year than the order itself. Feb 29 anniversaries fall on Feb 28 in
// common years.
func isAnniversary(first, today time.Time, window int) bool {
	if first.IsZero() {
		return false
	}
	for _, year := range []int{today.Year() - 1, today.Year(), today.Year() + 1} {
		if year <= first.Year() {
			continue
		}
		if abs(customer.DaysBetween(anniversaryIn(first, year), today)) <= window {
			return true
		}
	}
	return false
}

func anniversaryIn(first time.Time, year int) time.Time {
	day := first.Day()
	if first.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// HasTag reports whether tags contains t.
func HasTag(tags []Tag, t Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}
