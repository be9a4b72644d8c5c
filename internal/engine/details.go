package engine

import (
	"sort"
	"strings"

	"github.com/ignite/customer-alerts/internal/customer"
	"github.com/ignite/customer-alerts/internal/datanorm"
)

// DetailRow is one ledger line of a customer, for drill-down.
type DetailRow struct {
	Outcome      string  `json:"outcome"`
	PayDate      string  `json:"pay_date"`
	RefundDate   string  `json:"refund_date"`
	Item         string  `json:"item"`
	Platform     string  `json:"platform"`
	Manufacturer string  `json:"manufacturer"`
	Status       string  `json:"status"`
	Gross        float64 `json:"gross"`
	Net          float64 `json:"net"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	RefundAmount float64 `json:"refund_amount"`
	RefundType   string  `json:"refund_type"`
	RefundReason string  `json:"refund_reason"`
	OrderNo      string  `json:"order_no"`
	ReturnNo     string  `json:"return_no"`
	DataSource   string  `json:"data_source"`
}

// CustomerDetails is every ledger line of one identity.
type CustomerDetails struct {
	Name  string      `json:"name"`
	Phone string      `json:"phone"`
	Lines []DetailRow `json:"lines"`
}

func newCustomerDetails(s *customer.Stats) CustomerDetails {
	return CustomerDetails{Name: s.Name, Phone: s.Phone, Lines: newDetailRows(s.Details)}
}

func newDetailRows(ds []customer.Detail) []DetailRow {
	out := make([]DetailRow, len(ds))
	for i, d := range ds {
		out[i] = DetailRow{
			Outcome:      d.Outcome.String(),
			PayDate:      day(d.PayDate),
			RefundDate:   day(d.RefundDate),
			Item:         d.Item,
			Platform:     d.Platform,
			Manufacturer: d.Manufacturer,
			Status:       d.Status,
			Gross:        round2(d.Gross),
			Net:          round2(d.Net),
			Cost:         round2(d.Cost),
			Profit:       round2(d.Profit),
			RefundAmount: round2(d.RefundAmount),
			RefundType:   d.RefundType,
			RefundReason: d.RefundReason,
			OrderNo:      d.OrderNo,
			ReturnNo:     d.ReturnNo,
			DataSource:   d.DataSource,
		}
	}
	return out
}

// OrderMatch is a ledger line found by order or return number.
type OrderMatch struct {
	Key    string    `json:"key"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Status string    `json:"status,omitempty"`
	Detail DetailRow `json:"detail"`
}

// FindOrders returns every line whose order or return number contains
// query, ignoring case. When the query has digits, numbers also match
// on their digits alone, so "SF 1234-5678" finds "SF12345678".
func (r *Result) FindOrders(query string) []OrderMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	qDigits := datanorm.Digits(q)

	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []OrderMatch
	for _, k := range keys {
		cd := r.Details[k]
		for _, d := range cd.Lines {
			if !numberMatches(d.OrderNo, q, qDigits) && !numberMatches(d.ReturnNo, q, qDigits) {
				continue
			}
			out = append(out, OrderMatch{
				Key:    k,
				Name:   cd.Name,
				Phone:  cd.Phone,
				Status: r.Meta[k].Status,
				Detail: d,
			})
		}
	}
	return out
}

func numberMatches(cell, q, qDigits string) bool {
	if cell == "" {
		return false
	}
	if strings.Contains(strings.ToLower(cell), q) {
		return true
	}
	return qDigits != "" && strings.Contains(datanorm.Digits(cell), qDigits)
}
