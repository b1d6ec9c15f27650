package core

// Label 用于解释排序结果：可读、可追踪、可透传。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // space / filter / nlq ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// Item 是查询结果的统一承载结构：分数、各 Space 贡献、原始属性、标签。
// Features 记录每个 Space 的加权贡献，它们之和即 Score。
type Item struct {
	ID       string             `json:"id"`
	Score    float64            `json:"score"`
	Features map[string]float64 `json:"contributions"`
	Meta     map[string]any     `json:"fields"`
	Labels   map[string]Label   `json:"labels,omitempty"`
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
