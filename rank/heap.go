package rank

import (
	"container/heap"
	"slices"
	"strings"

	"github.com/rushteam/procurekit/index"
)

// candidate 是打分后的候选。
type candidate struct {
	entry         *index.Entry
	score         float64
	contributions []float64 // 与 Space 声明顺序对齐的加权贡献
}

// better 定义全局顺序：分数降序，分数相同按 id 升序。
func better(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.entry.ID() < b.entry.ID()
}

// topK 是容量为 k 的小顶堆，堆顶是当前保留候选中最差的一个。
type topK struct {
	k     int
	items []*candidate
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]*candidate, 0, min(k, 1024))}
}

func (h *topK) Len() int           { return len(h.items) }
func (h *topK) Less(i, j int) bool { return better(h.items[j], h.items[i]) }
func (h *topK) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topK) Push(x any)         { h.items = append(h.items, x.(*candidate)) }
func (h *topK) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return it
}

// offer 尝试加入候选，只保留最好的 k 个。
func (h *topK) offer(c *candidate) {
	if len(h.items) < h.k {
		heap.Push(h, c)
		return
	}
	if better(c, h.items[0]) {
		h.items[0] = c
		heap.Fix(h, 0)
	}
}

// merge 单线程合并各 worker 的局部结果，返回全局前 k 个（已排序）。
func merge(k int, parts []*topK) []*candidate {
	var all []*candidate
	for _, p := range parts {
		if p != nil {
			all = append(all, p.items...)
		}
	}
	slices.SortFunc(all, func(a, b *candidate) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		default:
			return strings.Compare(a.entry.ID(), b.entry.ID())
		}
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}
