package scoring

// Display tiers.
const (
	TierHigh     = "high"
	TierMid      = "mid"
	TierLow      = "low"
	TierNegative = "negative"
)

// Customer lists.
const (
	ListAudit    = "高风险待排查"
	ListSuperVIP = "超级VIP"
	ListNurture  = "活跃培养"
	ListAtRisk   = "濒临流失"
	ListCooldown = "冷却期"
)

// Tier buckets a clamped score.
func Tier(score float64) string {
	switch {
	case score >= 80:
		return TierHigh
	case score >= 50:
		return TierMid
	case score >= 0:
		return TierLow
	}
	return TierNegative
}

// CustomerList assigns the first matching list in precedence order.
// It reads the final score, tags and label, so it runs last.
func CustomerList(c *Customer) string {
	s := c.Stats
	rr, known := c.ReturnRate, c.HasReturnRate
	score := c.Priority.Score
	below := func(limit float64) bool { return !known || rr < limit }

	if HasTag(c.Tags, TagRefundSpike) || (known && rr > 0.4 && score >= 50) {
		return ListAudit
	}
	if (s.Orders >= 7 && below(0.2)) ||
		(s.Net >= 2000 && s.Orders >= 5 && below(0.25)) ||
		(score >= 200 && s.Orders >= 5) ||
		(c.Lifecycle.Label == LabelStar && s.Orders >= 5) {
		return ListSuperVIP
	}
	if c.HasDays && c.DaysSince < 90 && s.Orders >= 2 && below(0.3) {
		return ListNurture
	}
	if c.HasDays && c.DaysSince >= 90 && c.DaysSince <= 3*c.Thresholds.LongTerm &&
		(s.Orders >= 3 || s.Net >= 1000) && below(0.5) {
		return ListAtRisk
	}
	return ListNurture
}
