package customer

import (
	"math"
	"sort"
	"time"

	"github.com/ignite/customer-alerts/internal/datanorm"
)

// UnknownKey identifies rows that carry no phone, name or address.
const UnknownKey = "unknown"

// OrderEvent is one dated valid order.
type OrderEvent struct {
	Date time.Time
	Net  float64
}

// Detail keeps a raw ledger line for drill-down.
type Detail struct {
	Outcome      Outcome
	PayDate      time.Time
	RefundDate   time.Time
	Item         string
	Platform     string
	Manufacturer string
	Status       string
	Gross        float64
	Net          float64
	Cost         float64
	Profit       float64
	RefundAmount float64
	RefundType   string
	RefundReason string
	OrderNo      string
	ReturnNo     string
	DataSource   string
}

// Stats aggregates every ledger line of one customer identity.
// Refund and cancellation lines never add to the valid-order totals.
type Stats struct {
	Key     string
	Name    string
	Phone   string
	Address string

	Owners    Counter
	Platforms Counter
	Items     Counter

	FirstOrder time.Time
	LastOrder  time.Time

	Orders int
	Gross  float64
	Net    float64
	Cost   float64
	Profit float64

	Refunds       int
	RefundAmount  float64
	Cancellations int

	// ExchangeOrders counts valid lines whose refund type is an exchange.
	ExchangeOrders int
	// Exchanges counts every exchange-type line, valid or not.
	Exchanges int

	History []OrderEvent
	Details []Detail
}

// Key builds the identity of a row: phone, else name|address, else
// name, else address, else UnknownKey.
func Key(name, phone, address string) string {
	switch {
	case phone != "":
		return phone
	case name != "" && address != "":
		return name + "|" + address
	case name != "":
		return name
	case address != "":
		return address
	}
	return UnknownKey
}

func newStats(key string) *Stats {
	return &Stats{Key: key}
}

// add folds one classified row into the aggregate.
func (s *Stats) add(r datanorm.OrderRow, o Outcome) {
	if s.Name == "" {
		s.Name = r.Name
	}
	if s.Phone == "" {
		s.Phone = r.Phone
	}
	if s.Address == "" {
		s.Address = r.Address
	}

	net := r.Net
	if net == 0 {
		net = r.Gross
	}

	profit := lineProfit(r, net)
	if o.Has(ValidOrder) {
		s.Orders++
		s.Gross += r.Gross
		s.Net += net
		s.Cost += r.Cost
		s.Profit += profit
		s.Owners.Add(r.Owner)
		s.Platforms.Add(r.Platform)
		s.Items.Add(r.Item)
		if o.Has(Exchange) {
			s.ExchangeOrders++
		}
		if r.HasPayDate() {
			s.History = append(s.History, OrderEvent{Date: r.PayDate, Net: net})
			if s.FirstOrder.IsZero() || r.PayDate.Before(s.FirstOrder) {
				s.FirstOrder = r.PayDate
			}
			if r.PayDate.After(s.LastOrder) {
				s.LastOrder = r.PayDate
			}
		}
	} else {
		s.Cancellations++
	}
	if o.Has(Refunded) {
		s.Refunds++
		s.RefundAmount += r.RefundAmount
	}
	if o.Has(Exchange) {
		s.Exchanges++
	}

	s.Details = append(s.Details, Detail{
		Outcome:      o,
		PayDate:      r.PayDate,
		RefundDate:   r.RefundDate,
		Item:         r.Item,
		Platform:     r.Platform,
		Manufacturer: r.Manufacturer,
		Status:       r.Status,
		Gross:        r.Gross,
		Net:          net,
		Cost:         r.Cost,
		Profit:       profit,
		RefundAmount: r.RefundAmount,
		RefundType:   r.RefundType,
		RefundReason: r.RefundReason,
		OrderNo:      r.OrderNo,
		ReturnNo:     r.ReturnNo,
		DataSource:   r.DataSource,
	})
}

// Costed reports whether the line carries profit or cost data.
func (d Detail) Costed() bool { return d.Profit != 0 || d.Cost > 0 }

// lineProfit prefers the ledger's own profit column, then net minus cost.
func lineProfit(r datanorm.OrderRow, net float64) float64 {
	if r.Profit != 0 {
		return r.Profit
	}
	if r.Cost > 0 {
		return net - r.Cost
	}
	return 0
}

// ReturnRate is refunds / (orders + refunds). ok is false when the
// customer has neither.
func (s *Stats) ReturnRate() (rate float64, ok bool) {
	total := s.Orders + s.Refunds
	if total == 0 {
		return 0, false
	}
	return float64(s.Refunds) / float64(total), true
}

// AOV is the average net value of a valid order.
func (s *Stats) AOV() float64 {
	if s.Orders == 0 {
		return 0
	}
	return s.Net / float64(s.Orders)
}

// AvgProfit is the average profit per valid order.
func (s *Stats) AvgProfit() float64 {
	if s.Orders == 0 {
		return 0
	}
	return s.Profit / float64(s.Orders)
}

// EffectiveOrders is the valid order count without exchange lines.
func (s *Stats) EffectiveOrders() int { return s.Orders - s.ExchangeOrders }

// HasExchange reports any exchange-type line.
func (s *Stats) HasExchange() bool { return s.Exchanges > 0 }

// PreferredItem is the most frequently bought item.
func (s *Stats) PreferredItem() string { return s.Items.MostFrequent() }

// MainOwner is the staff member on most of the orders.
func (s *Stats) MainOwner() string { return s.Owners.MostFrequent() }

// MainPlatform is the platform most orders came through.
func (s *Stats) MainPlatform() string { return s.Platforms.MostFrequent() }

// DaysSinceLast returns whole days from the last dated order to today.
func (s *Stats) DaysSinceLast(today time.Time) (int, bool) {
	if s.LastOrder.IsZero() {
		return 0, false
	}
	return DaysBetween(s.LastOrder, today), true
}

// SpanDays is the number of days between the first and last order.
func (s *Stats) SpanDays() int {
	if s.FirstOrder.IsZero() || s.LastOrder.IsZero() {
		return 0
	}
	return DaysBetween(s.FirstOrder, s.LastOrder)
}

// OrderDates returns the distinct dated order days, ascending.
func (s *Stats) OrderDates() []time.Time {
	seen := make(map[time.Time]bool, len(s.History))
	var out []time.Time
	for _, e := range s.History {
		d := datanorm.Day(e.Date)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FirstOrderSpend is the net spent on the first order day.
func (s *Stats) FirstOrderSpend() float64 {
	if s.FirstOrder.IsZero() {
		return 0
	}
	first := datanorm.Day(s.FirstOrder)
	var sum float64
	for _, e := range s.History {
		if datanorm.Day(e.Date).Equal(first) {
			sum += e.Net
		}
	}
	return sum
}

// SpendWithinFirst sums net spend in the first days after the first order.
func (s *Stats) SpendWithinFirst(days int) float64 {
	if s.FirstOrder.IsZero() {
		return 0
	}
	var sum float64
	for _, e := range s.History {
		if DaysBetween(s.FirstOrder, e.Date) < days {
			sum += e.Net
		}
	}
	return sum
}

// RefundDates returns when each refund event happened: the refund date
// when the ledger has one, else the pay date. Undated refunds are skipped.
func (s *Stats) RefundDates() []time.Time {
	var out []time.Time
	for _, d := range s.Details {
		if !d.Outcome.Has(Refunded) {
			continue
		}
		switch {
		case !d.RefundDate.IsZero():
			out = append(out, d.RefundDate)
		case !d.PayDate.IsZero():
			out = append(out, d.PayDate)
		}
	}
	return out
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(datanorm.Day(b).Sub(datanorm.Day(a)).Hours() / 24))
}
