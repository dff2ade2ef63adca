package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// mutation 一次乐观更新。S 是回滚所需的快照类型。
type mutation[S any] struct {
	name    string // 日志中的操作名
	failMsg string // 远端失败时给用户的提示

	// capture 校验前置条件并记录修改前的值，返回错误时不做任何修改也不发请求
	capture func() (S, error)
	apply   func(S)
	remote  func(ctx context.Context) error
	// restore 远端失败后把 capture 记录的值原样放回
	restore func(S)
}

// performOptimistic 在同一把锁内完成 capture 和 apply，释放锁后再发远端请求。
// 远端失败时执行 restore 并发出提示，不自动重试。
func performOptimistic[S any](ctx context.Context, s *Store, m mutation[S]) error {
	s.mu.Lock()
	snap, err := m.capture()
	if err != nil {
		s.mu.Unlock()
		s.notify(NoticeError, err.Error(), err)
		return err
	}
	m.apply(snap)
	s.mu.Unlock()
	s.emit()

	if err := m.remote(ctx); err != nil {
		s.mu.Lock()
		m.restore(snap)
		s.mu.Unlock()
		s.emit()

		s.log.Error(m.name+" 失败，已回滚本地状态", zap.Error(err))
		s.notify(NoticeError, m.failMsg, err)
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return nil
}
