package customer

import (
	"strings"

	"github.com/ignite/customer-alerts/internal/datanorm"
)

// Ledger text markers.
const (
	CancelMarker   = "取消"
	RefundMarker   = "退"
	ExchangeMarker = "换"
)

// Outcome is the closed set of things a ledger line can mean. Cancelled
// and ValidOrder are exclusive; Refunded and Exchange combine with either.
type Outcome uint8

const (
	Cancelled Outcome = 1 << iota
	ValidOrder
	Refunded
	Exchange
)

// Has reports whether every flag in f is set.
func (o Outcome) Has(f Outcome) bool { return o&f == f }

func (o Outcome) String() string {
	var parts []string
	for _, f := range []struct {
		flag Outcome
		name string
	}{{Cancelled, "cancelled"}, {ValidOrder, "valid"}, {Refunded, "refunded"}, {Exchange, "exchange"}} {
		if o.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Classify decides what a line means. It is the only place ledger text
// markers are matched.
func Classify(r datanorm.OrderRow) Outcome {
	var o Outcome
	if strings.Contains(r.Status, CancelMarker) || strings.Contains(r.RefundType, CancelMarker) || r.Gross <= 0 {
		o |= Cancelled
	} else {
		o |= ValidOrder
	}
	if r.RefundAmount > 0 || strings.Contains(r.RefundStatus, RefundMarker) || strings.Contains(r.RefundType, RefundMarker) {
		o |= Refunded
	}
	if strings.Contains(r.RefundType, ExchangeMarker) {
		o |= Exchange
	}
	return o
}
