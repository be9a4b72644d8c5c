// Package playbook renders the recommended action and the explanation
// string of a worklist entry using Liquid templates.
package playbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/scoring"
)

// DefaultTemplates are the built-in action templates per customer list.
var DefaultTemplates = map[string]string{
	scoring.ListAudit: `核查近期退款与售后记录（退款率 {{ return_rate | pct }}），确认问题处理完毕后再联系`,
	scoring.ListSuperVIP: `{{ owner | default: "负责人" }}一对一回访，优先推荐{{ preferred_item | default: "新品" }}，` +
		`提供专属权益{% if anniversary %}，附周年问候{% endif %}`,
	scoring.ListNurture: `距上次购买{{ days_since | default: "-" }}天，推荐{{ preferred_item | default: "常购商品" }}复购` +
		`{% if timing_boost > 0 %}，正处复购窗口{% endif %}`,
	scoring.ListAtRisk: `已{{ days_since | default: "-" }}天未购买，发送召回关怀与专属优惠`,
	scoring.ListCooldown: `冷却期内暂缓主动联系，上次联系 {{ last_contact | default: "-" }}` +
		`{% if next_contact != "" %}，计划 {{ next_contact }} 再跟进{% endif %}`,
}

// DefaultExplanation joins signals, score, applied rules and key metrics.
const DefaultExplanation = `{% if has_tags %}信号: {{ tags | join: "、" }}；{% endif %}` +
	`评分 {{ score }}（{{ tier }}）；订单 {{ orders }}，客单价 {{ aov | money }}，退款率 {{ return_rate | pct }}` +
	`{% if has_rules %}；规则: {{ rules | join: ", " }}{% endif %}`

// fallbackAction is used for lists without a template.
const fallbackAction = `按常规节奏跟进`

// Renderer holds the parsed templates for a run.
type Renderer struct {
	engine      *liquid.Engine
	actions     map[string]*liquid.Template
	builtin     map[string]*liquid.Template
	explanation *liquid.Template
	builtinExpl *liquid.Template
}

// New parses the configured templates. A template that fails to parse is
// replaced by the built-in one for its list.
func New(cfg config.Playbook) *Renderer {
	r := &Renderer{
		engine:  liquid.NewEngine(),
		actions: make(map[string]*liquid.Template),
		builtin: make(map[string]*liquid.Template),
	}
	r.registerFilters()

	for list, src := range DefaultTemplates {
		r.builtin[list] = r.mustParse(src)
	}
	r.builtinExpl = r.mustParse(DefaultExplanation)

	for list, src := range cfg.Templates {
		tpl, err := r.engine.ParseString(src)
		if err != nil {
			logger.Warn("playbook template rejected", "list", list, "error", err.Error())
			continue
		}
		r.actions[list] = tpl
	}
	r.explanation = r.builtinExpl
	if cfg.Explanation != "" {
		if tpl, err := r.engine.ParseString(cfg.Explanation); err != nil {
			logger.Warn("playbook explanation rejected", "error", err.Error())
		} else {
			r.explanation = tpl
		}
	}
	return r
}

func (r *Renderer) mustParse(src string) *liquid.Template {
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		panic(fmt.Sprintf("playbook: built-in template: %v", err))
	}
	return tpl
}

func (r *Renderer) registerFilters() {
	// {{ aov | money }} → ¥1,280
	r.engine.RegisterFilter("money", func(v interface{}) string {
		f, ok := toFloat(v)
		if !ok {
			return "-"
		}
		return "¥" + groupThousands(strconv.FormatFloat(f, 'f', 0, 64))
	})
	// {{ return_rate | pct }} → 12.5%; nil renders "-".
	r.engine.RegisterFilter("pct", func(v interface{}) string {
		f, ok := toFloat(v)
		if !ok {
			return "-"
		}
		return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
	})
}

// Action renders the recommended action for the entry's list.
func (r *Renderer) Action(c *scoring.Customer, list string, contact contactlog.Entry) string {
	b := Bindings(c, list, contact)
	if tpl, ok := r.actions[list]; ok {
		out, err := tpl.RenderString(b)
		if err == nil {
			return strings.TrimSpace(out)
		}
		logger.Warn("playbook render failed, using built-in", "list", list, "error", err.Error())
	}
	tpl, ok := r.builtin[list]
	if !ok {
		return fallbackAction
	}
	out, err := tpl.RenderString(b)
	if err != nil {
		return fallbackAction
	}
	return strings.TrimSpace(out)
}

// Explanation renders the reasoning string for a customer.
func (r *Renderer) Explanation(c *scoring.Customer, list string, contact contactlog.Entry) string {
	b := Bindings(c, list, contact)
	out, err := r.explanation.RenderString(b)
	if err != nil && r.explanation != r.builtinExpl {
		logger.Warn("playbook explanation failed, using built-in", "error", err.Error())
		out, err = r.builtinExpl.RenderString(b)
	}
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Bindings exposes a customer to templates.
func Bindings(c *scoring.Customer, list string, contact contactlog.Entry) liquid.Bindings {
	s := c.Stats
	tags := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		tags[i] = string(t)
	}
	rules := make([]string, len(c.Priority.Adjustments))
	for i, a := range c.Priority.Adjustments {
		rules[i] = a.Name + signed(a.Value)
	}

	b := liquid.Bindings{
		"name":           s.Name,
		"list":           list,
		"score":          c.Priority.Score,
		"tier":           c.Tier,
		"orders":         s.Orders,
		"net":            s.Net,
		"aov":            s.AOV(),
		"preferred_item": s.PreferredItem(),
		"owner":          s.MainOwner(),
		"platform":       s.MainPlatform(),
		"tags":           tags,
		"has_tags":       len(tags) > 0,
		"rules":          rules,
		"has_rules":      len(rules) > 0,
		"anniversary":    scoring.HasTag(c.Tags, scoring.TagAnniversary),
		"timing_boost":   c.Timing.Boost,
		"label":          c.Lifecycle.Label,
		"growth_type":    c.Lifecycle.GrowthType,
		"value_tier":     c.ValueTier,
		"last_contact":   nil,
		"next_contact":   "",
		"days_since":     nil,
		"return_rate":    nil,
	}
	if c.HasDays {
		b["days_since"] = c.DaysSince
	}
	if c.HasReturnRate {
		b["return_rate"] = c.ReturnRate
	}
	if contact.Owner != "" {
		b["owner"] = contact.Owner
	}
	if !contact.LastContact.IsZero() {
		b["last_contact"] = contact.LastContact.Format("2006-01-02")
	}
	if !contact.NextContact.IsZero() {
		b["next_contact"] = contact.NextContact.Format("2006-01-02")
	}
	return b
}

func signed(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v > 0 {
		return "+" + s
	}
	return s
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
