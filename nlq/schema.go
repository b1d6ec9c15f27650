package nlq

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// buildSchema 按参数声明生成结构化输出的 JSON Schema。
//
// 所有字段都列入 required 且不允许额外字段，满足 OpenAI strict 模式；
// 可选的数值边界用 anyOf [number, null] 表达。
func (x *Extractor) buildSchema(options map[string][]string) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	required := make([]string, 0, len(x.params))
	for _, p := range x.params {
		props.Set(p.Name, x.paramSchema(p, options[p.Name]))
		required = append(required, p.Name)
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Title:                schemaName,
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func (x *Extractor) paramSchema(p Param, options []string) *jsonschema.Schema {
	switch p.Kind {
	case KindProbe:
		return &jsonschema.Schema{Type: "string", Description: p.Description}
	case KindWeight:
		return &jsonschema.Schema{
			Type:        "number",
			Description: p.Description,
			Minimum:     number(0),
			Maximum:     number(MaxWeight),
		}
	case KindMin, KindMax:
		attr, _ := x.catalog.Attribute(p.Target)
		return &jsonschema.Schema{
			Description: p.Description,
			AnyOf: []*jsonschema.Schema{
				{Type: "number", Minimum: number(attr.Min), Maximum: number(attr.Max)},
				{Type: "null"},
			},
		}
	default:
		items := &jsonschema.Schema{Type: "string"}
		desc := p.Description
		if len(options) > 0 {
			items.Enum = make([]any, len(options))
			for i, o := range options {
				items.Enum[i] = o
			}
			desc += " Allowed values: " + strings.Join(options, ", ") + "."
		}
		return &jsonschema.Schema{Type: "array", Description: desc, Items: items}
	}
}

func number(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}
