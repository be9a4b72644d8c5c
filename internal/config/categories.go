package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one entry of the category table. Nil overrides fall back
// to Defaults.
type Category struct {
	Name               string   `yaml:"-"`
	Aliases            []string `yaml:"aliases"`
	GrossMargin        *float64 `yaml:"gross_margin"`
	CycleDays          *float64 `yaml:"category_cycle_days"`
	ExpectedReturnRate *float64 `yaml:"expected_return_rate"`
	TouchCost          *float64 `yaml:"touch_cost"`
	MaxEstimatedMargin *float64 `yaml:"max_estimated_margin"`
	MaxEstimatedUplift *float64 `yaml:"max_estimated_uplift"`
}

// Categories keeps the order the table was declared in, which decides
// which category wins when several aliases match one item.
type Categories []Category

// UnmarshalYAML decodes a mapping of name → category preserving order.
func (c *Categories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("categories: expected a mapping at line %d", node.Line)
	}
	out := make(Categories, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var cat Category
		if err := node.Content[i+1].Decode(&cat); err != nil {
			return fmt.Errorf("categories.%s: %w", name, err)
		}
		cat.Name = name
		out = append(out, cat)
	}
	*c = out
	return nil
}

// CategoryProfile is a category with every default resolved.
type CategoryProfile struct {
	Name               string // empty when no category matched
	GrossMargin        float64
	CycleDays          float64
	ExpectedReturnRate float64
	TouchCost          float64
	MaxEstimatedMargin float64
	MaxEstimatedUplift float64
}

// Category resolves the category for an item name: the first category,
// in declared order, with an alias contained in the item. Unmatched
// items get the global defaults.
func (s *Scoring) Category(item string) CategoryProfile {
	if item != "" {
		for i := range s.Categories {
			for _, alias := range s.Categories[i].Aliases {
				if alias != "" && strings.Contains(item, alias) {
					return s.profile(&s.Categories[i])
				}
			}
		}
	}
	return s.profile(nil)
}

// CategoryCycle returns the repurchase cycle for a category name, or the
// global default for unknown names.
func (s *Scoring) CategoryCycle(name string) float64 {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return s.profile(&s.Categories[i]).CycleDays
		}
	}
	return s.Defaults.CategoryCycleDays
}

func (s *Scoring) profile(c *Category) CategoryProfile {
	d := s.Defaults
	p := CategoryProfile{
		GrossMargin:        d.GrossMargin,
		CycleDays:          d.CategoryCycleDays,
		ExpectedReturnRate: d.ExpectedReturnRate,
		TouchCost:          d.TouchCost,
		MaxEstimatedMargin: d.MaxEstimatedMargin,
		MaxEstimatedUplift: d.MaxEstimatedUplift,
	}
	if c == nil {
		return p
	}
	p.Name = c.Name
	override(&p.GrossMargin, c.GrossMargin)
	override(&p.CycleDays, c.CycleDays)
	override(&p.ExpectedReturnRate, c.ExpectedReturnRate)
	override(&p.TouchCost, c.TouchCost)
	override(&p.MaxEstimatedMargin, c.MaxEstimatedMargin)
	override(&p.MaxEstimatedUplift, c.MaxEstimatedUplift)
	return p
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
