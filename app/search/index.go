package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"note-sync/app/model"

	"github.com/agnivade/levenshtein"
	"github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
)

// DefaultThreshold 宽松匹配，与编辑距离占查询长度的比例比较
const DefaultThreshold = 0.4

// Index 按任务标题做模糊匹配
type Index struct {
	threshold float64
	scores    *cache.Cache
}

// NewIndex threshold 取值 0~1，越小越严格；ttl 为打分缓存的有效期
func NewIndex(threshold float64, ttl time.Duration) *Index {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Index{
		threshold: threshold,
		scores:    cache.New(ttl, 2*ttl),
	}
}

type hit struct {
	task  model.Task
	score float64
}

// Search 返回标题匹配 query 的任务，分数相同时保持原有顺序。
// query 为空时原样返回全部任务。
func (ix *Index) Search(tasks []model.Task, query string) []model.Task {
	q := normalize(query)
	if q == "" {
		return append([]model.Task(nil), tasks...)
	}

	hits := make([]hit, 0, len(tasks))
	for _, t := range tasks {
		if score := ix.Score(t.Title(), q); score <= ix.threshold {
			hits = append(hits, hit{task: t, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score < hits[j].score
	})

	out := make([]model.Task, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.task)
	}
	return out
}

// Score 标题中与 query 最接近的片段的编辑距离除以 query 长度，0 表示完全包含
func (ix *Index) Score(title, query string) float64 {
	q := normalize(query)
	if q == "" {
		return 0
	}
	t := normalize(title)

	key := fmt.Sprintf("%s\x00%s", q, t)
	if v, ok := ix.scores.Get(key); ok {
		return v.(float64)
	}
	score := windowScore([]rune(t), []rune(q))
	ix.scores.SetDefault(key, score)
	return score
}

// Purge 清空打分缓存
func (ix *Index) Purge() {
	ix.scores.Flush()
}

func windowScore(title, query []rune) float64 {
	n := len(query)
	if len(title) <= n {
		return float64(levenshtein.ComputeDistance(string(title), string(query))) / float64(n)
	}

	best := n
	for size := max(n-1, 1); size <= n+1; size++ {
		for i := 0; i+size <= len(title); i++ {
			d := levenshtein.ComputeDistance(string(title[i:i+size]), string(query))
			if d < best {
				best = d
			}
			if best == 0 {
				return 0
			}
		}
	}
	return float64(best) / float64(n)
}

func normalize(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
