package search

import (
	"sync"
	"time"

	"note-sync/app/model"
)

// DefaultQuietPeriod 查询稳定多久之后才执行搜索
const DefaultQuietPeriod = 300 * time.Millisecond

// Searcher 对输入做防抖：SetQuery 立即更新待执行的查询，
// 查询在静默期内没有变化才真正执行搜索。同一时刻只有一个定时器有效。
type Searcher struct {
	index    *Index
	source   func() []model.Task
	delay    time.Duration
	onResult func(query string, results []model.Task)

	mu       sync.Mutex
	pending  string
	query    string
	timer    *time.Timer
	gen      uint64
	executed int
	closed   bool
}

// NewSearcher source 提供当前任务列表；onResult 在每次执行搜索后调用，可以为 nil
func NewSearcher(index *Index, source func() []model.Task, delay time.Duration, onResult func(string, []model.Task)) *Searcher {
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	return &Searcher{
		index:    index,
		source:   source,
		delay:    delay,
		onResult: onResult,
	}
}

// SetQuery 记录新的输入并重新开始计时
func (s *Searcher) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = q
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.run(gen) })
}

// Flush 立即执行待处理的查询
func (s *Searcher) Flush() []model.Task {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	return s.run(gen)
}

func (s *Searcher) run(gen uint64) []model.Task {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	q := s.pending
	s.mu.Unlock()

	results := s.index.Search(s.source(), q)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return results
	}
	s.query = q
	s.executed++
	s.timer = nil
	cb := s.onResult
	s.mu.Unlock()

	if cb != nil {
		cb(q, results)
	}
	return results
}

// Pending 最近一次输入，用于回显
func (s *Searcher) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Query 最近一次实际执行的查询
func (s *Searcher) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Results 用最近一次执行的查询过滤当前任务列表
func (s *Searcher) Results() []model.Task {
	return s.index.Search(s.source(), s.Query())
}

// Executed 已执行的搜索次数
func (s *Searcher) Executed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed
}

// Close 取消尚未执行的搜索，之后的输入都会被忽略
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
