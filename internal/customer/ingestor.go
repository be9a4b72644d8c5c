package customer

import "github.com/ignite/customer-alerts/internal/datanorm"

// Ingestor builds one Stats per customer identity. It lives for a single
// scoring run.
type Ingestor struct {
	byKey map[string]*Stats
	order []*Stats
}

// NewIngestor returns an empty ingestor.
func NewIngestor() *Ingestor {
	return &Ingestor{byKey: make(map[string]*Stats)}
}

// Ingest classifies and aggregates every row.
func Ingest(rows []datanorm.OrderRow) *Ingestor {
	in := NewIngestor()
	for _, r := range rows {
		in.Add(r)
	}
	return in
}

// Add folds one row into its customer's Stats, creating it on first sight.
func (in *Ingestor) Add(r datanorm.OrderRow) *Stats {
	key := Key(r.Name, r.Phone, r.Address)
	s, ok := in.byKey[key]
	if !ok {
		s = newStats(key)
		in.byKey[key] = s
		in.order = append(in.order, s)
	}
	s.add(r, Classify(r))
	return s
}

// Customers returns every customer in first-seen order.
func (in *Ingestor) Customers() []*Stats { return in.order }

// Lookup finds a customer by identity key.
func (in *Ingestor) Lookup(key string) (*Stats, bool) {
	s, ok := in.byKey[key]
	return s, ok
}

// Len returns the number of distinct identities.
func (in *Ingestor) Len() int { return len(in.order) }
