package nlq

import (
	"math"
	"slices"
	"strings"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/pkg/conv"
)

// Action 是对 LLM 输出所做的修正动作。
type Action string

const (
	ActionClamped Action = "clamped"
	ActionDropped Action = "dropped"
)

// Anomaly 记录一次对 LLM 输出的修正；修正后的参数总是合法的。
type Anomaly struct {
	Param  string `json:"param"`
	Value  any    `json:"value,omitempty"`
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Err 以 VALIDATION_ANOMALY 错误的形式表达该修正。
func (a Anomaly) Err() error {
	return core.Errorf(core.ModuleNLQ, core.ErrorCodeValidationAnomaly, "%s %s: %s", a.Param, a.Action, a.Reason)
}

type bounds struct {
	lo, hi         *float64
	loName, hiName string
}

type validator struct {
	x         *Extractor
	options   map[string][]string
	anomalies []Anomaly
}

func (v *validator) note(p Param, value any, action Action, reason string) {
	v.anomalies = append(v.anomalies, Anomaly{Param: p.Name, Value: value, Action: action, Reason: reason})
}

// validate 把 LLM 输出的原始字段修正为合法的 QueryParameters。
// raw 为 nil 时得到声明的默认参数。
func (x *Extractor) validate(raw map[string]any, options map[string][]string) (*core.QueryParameters, []Anomaly) {
	v := &validator{x: x, options: options}
	params := &core.QueryParameters{
		Weights: make(map[string]float64),
		Limit:   core.DefaultLimit,
	}

	ranges := make(map[string]*bounds)
	var rangeOrder []string
	var sets []core.FilterSpec

	for _, p := range x.params {
		val, present := raw[p.Name]
		if val == nil {
			present = false
		}
		switch p.Kind {
		case KindProbe:
			if !present {
				continue
			}
			s, ok := conv.ToString(val)
			if !ok {
				v.note(p, val, ActionDropped, "not a string")
				continue
			}
			params.ProbeText = strings.TrimSpace(s)

		case KindWeight:
			params.Weights[p.Target] = v.weight(p, val, present)

		case KindMin, KindMax:
			f, ok := v.bound(p, val, present)
			if !ok {
				continue
			}
			b := ranges[p.Target]
			if b == nil {
				b = &bounds{}
				ranges[p.Target] = b
				rangeOrder = append(rangeOrder, p.Target)
			}
			if p.Kind == KindMin {
				b.lo, b.loName = &f, p.Name
			} else {
				b.hi, b.hiName = &f, p.Name
			}

		case KindInclude, KindExclude:
			values := v.members(p, val, present)
			if len(values) == 0 {
				continue
			}
			op := core.OpIn
			if p.Kind == KindExclude {
				op = core.OpNotIn
			}
			sets = append(sets, core.FilterSpec{Attribute: p.Target, Op: op, Values: values})
		}
	}

	for _, attr := range rangeOrder {
		b := ranges[attr]
		if b.lo != nil && b.hi != nil && *b.lo > *b.hi {
			v.anomalies = append(v.anomalies, Anomaly{
				Param:  b.loName + "," + b.hiName,
				Value:  []float64{*b.lo, *b.hi},
				Action: ActionDropped,
				Reason: "lower bound exceeds upper bound",
			})
			continue
		}
		params.Filters = append(params.Filters, core.Range(attr, b.lo, b.hi))
	}
	params.Filters = append(params.Filters, sets...)
	return params, v.anomalies
}

func (v *validator) weight(p Param, val any, present bool) float64 {
	def := 0.0
	if p.Default != nil {
		def = *p.Default
	}
	if !present {
		return def
	}
	f, ok := conv.ToFloat64(val)
	if !ok {
		v.note(p, val, ActionDropped, "not a number")
		return def
	}
	switch {
	case f < 0:
		v.note(p, val, ActionClamped, "weight below 0")
		return 0
	case f > MaxWeight:
		v.note(p, val, ActionClamped, "weight above 10")
		return MaxWeight
	}
	return f
}

// bound 返回数值边界；未填写时取声明默认值，越出属性值域时截断。
func (v *validator) bound(p Param, val any, present bool) (float64, bool) {
	if !present {
		if p.Default == nil {
			return 0, false
		}
		return *p.Default, true
	}
	f, ok := conv.ToFloat64(val)
	if !ok || math.IsInf(f, 0) {
		v.note(p, val, ActionDropped, "not a finite number")
		if p.Default == nil {
			return 0, false
		}
		return *p.Default, true
	}
	attr, _ := v.x.catalog.Attribute(p.Target)
	switch {
	case f < attr.Min:
		v.note(p, val, ActionClamped, "below attribute domain")
		return attr.Min, true
	case f > attr.Max:
		v.note(p, val, ActionClamped, "above attribute domain")
		return attr.Max, true
	}
	return f, true
}

// members 保留封闭集合内的取值（大小写不敏感，输出规范写法），其余丢弃。
func (v *validator) members(p Param, val any, present bool) []string {
	if !present {
		return nil
	}
	var raw []string
	switch val.(type) {
	case []any, []string, string:
		raw = conv.SliceAnyToString(val)
	default:
		v.note(p, val, ActionDropped, "not a list of strings")
		return nil
	}

	allowed := v.options[p.Name]
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		i := slices.IndexFunc(allowed, func(o string) bool { return strings.EqualFold(o, s) })
		if i < 0 {
			v.note(p, s, ActionDropped, "not an allowed value")
			continue
		}
		if !slices.Contains(out, allowed[i]) {
			out = append(out, allowed[i])
		}
	}
	return out
}
