package space

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/procurekit/core"
)

// Mode 是数值偏好方向。
type Mode string

const (
	Maximize Mode = "maximize"
	Minimize Mode = "minimize"
)

// Scale 是归一化前的尺度变换。
type Scale string

const (
	Linear      Scale = "linear"
	Logarithmic Scale = "log"
)

// ParseMode 解析配置中的方向，大小写不敏感。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "max", "maximize", "maximum":
		return Maximize, nil
	case "min", "minimize", "minimum":
		return Minimize, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// ParseScale 解析配置中的尺度，空字符串视为 linear。
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return Linear, nil
	case "log", "logarithmic":
		return Logarithmic, nil
	}
	return "", fmt.Errorf("unknown scale %q", s)
}

// NumberSpace 把数值属性归一化到 [0,1]，1 总是表示“最偏好”。
//
// 公式：
//
//	clamped = clamp(raw, Min, Max)
//	x = log1p(clamped)（Logarithmic）或 clamped
//	n = clamp((x - x_min) / (x_max - x_min), 0, 1)
//	score = 1 - n（Minimize）或 n
type NumberSpace struct {
	base
	attribute string
	min, max  float64
	mode      Mode
	scale     Scale

	xMin, xMax float64
}

// NumberOptions 是 NumberSpace 的构建参数。
type NumberOptions struct {
	Attribute     string
	Min, Max      float64
	Mode          Mode
	Scale         Scale
	DefaultWeight float64
}

// NewNumberSpace 校验并构建 NumberSpace；边界非法属于 CONFIGURATION 错误。
func NewNumberSpace(name string, opts NumberOptions) (*NumberSpace, error) {
	if opts.Scale == "" {
		opts.Scale = Linear
	}
	if opts.Mode == "" {
		opts.Mode = Maximize
	}
	switch {
	case math.IsNaN(opts.Min) || math.IsNaN(opts.Max):
		return nil, configErr(name, "bounds must be numbers")
	case opts.Max <= opts.Min:
		return nil, configErr(name, fmt.Sprintf("max_value %v must be greater than min_value %v", opts.Max, opts.Min))
	case opts.Scale == Logarithmic && opts.Min < 0:
		return nil, configErr(name, fmt.Sprintf("logarithmic scale requires min_value >= 0, got %v", opts.Min))
	case opts.Mode != Maximize && opts.Mode != Minimize:
		return nil, configErr(name, fmt.Sprintf("unknown mode %q", opts.Mode))
	case opts.Scale != Linear && opts.Scale != Logarithmic:
		return nil, configErr(name, fmt.Sprintf("unknown scale %q", opts.Scale))
	}
	s := &NumberSpace{
		base:      base{name: name, defaultWeight: opts.DefaultWeight},
		attribute: opts.Attribute,
		min:       opts.Min,
		max:       opts.Max,
		mode:      opts.Mode,
		scale:     opts.Scale,
	}
	s.xMin, s.xMax = s.transform(opts.Min), s.transform(opts.Max)
	return s, nil
}

func (s *NumberSpace) Kind() Kind           { return KindNumber }
func (s *NumberSpace) Attributes() []string { return []string{s.attribute} }
func (s *NumberSpace) Mode() Mode           { return s.mode }
func (s *NumberSpace) Scale() Scale         { return s.scale }
func (s *NumberSpace) Bounds() (float64, float64) {
	return s.min, s.max
}

func (s *NumberSpace) transform(v float64) float64 {
	if s.scale == Logarithmic {
		return math.Log1p(v)
	}
	return v
}

// Normalize 把原始值映射为偏好分数，结果总在 [0,1]。
func (s *NumberSpace) Normalize(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	if s.xMax == s.xMin {
		return 0.5
	}
	x := s.transform(clamp(raw, s.min, s.max))
	n := clamp((x-s.xMin)/(s.xMax-s.xMin), 0, 1)
	if s.mode == Minimize {
		return 1 - n
	}
	return n
}

func (s *NumberSpace) Encode(_ context.Context, _ core.Embedder, e *core.Entity) (Feature, error) {
	raw, ok := e.NumberValue(s.attribute)
	if !ok {
		return Feature{Missing: true}, nil
	}
	return Feature{Value: s.Normalize(raw)}, nil
}

func (s *NumberSpace) Contribution(f Feature, _ *Probe) float64 {
	if f.Missing {
		return 0
	}
	return f.Value
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func configErr(name, msg string) error {
	return core.Errorf(core.ModuleSpace, core.ErrorCodeConfiguration, "space %q: %s", name, msg)
}
