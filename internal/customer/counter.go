package customer

// Counter counts labels while remembering the order they were first seen.
type Counter struct {
	labels []string
	counts map[string]int
}

// Add counts one occurrence of label. Empty labels are ignored.
func (c *Counter) Add(label string) {
	if label == "" {
		return
	}
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[label]; !ok {
		c.labels = append(c.labels, label)
	}
	c.counts[label]++
}

// Count returns how often label was added.
func (c *Counter) Count(label string) int { return c.counts[label] }

// Len returns the number of distinct labels.
func (c *Counter) Len() int { return len(c.labels) }

// Labels returns the distinct labels in first-seen order.
func (c *Counter) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// MostFrequent returns the label with the highest count. Ties go to the
// label seen first; an empty counter returns "".
func (c *Counter) MostFrequent() string {
	best, bestN := "", 0
	for _, l := range c.labels {
		if n := c.counts[l]; n > bestN {
			best, bestN = l, n
		}
	}
	return best
}
