package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"note-sync/app/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Initialize 首次加载历史记录和文件夹。已初始化时直接返回；
// 并发调用时只有第一个调用会加载，其余调用等待它完成。
// 加载失败不影响初始化完成，错误会记录日志并通知用户。
// 加载期间调用了 Dispose 时丢弃加载结果并返回 ErrDisposed。
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	if done := s.initDone; done != nil {
		s.initMu.Unlock()
		select {
		case <-done:
			return s.checkInitDone(done)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	s.initDone = done
	s.initMu.Unlock()

	err := s.load(ctx)

	s.initMu.Lock()
	current := s.initDone == done
	if current {
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
	}
	s.initMu.Unlock()
	close(done)

	if !current {
		s.log.Info("初始化期间已释放，丢弃加载结果")
		return ErrDisposed
	}
	s.emit()

	if err != nil {
		return fmt.Errorf("初始化: %w", err)
	}
	return nil
}

func (s *Store) checkInitDone(done chan struct{}) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initDone != done {
		return ErrDisposed
	}
	return nil
}

// InitializeAfter 延迟执行 Initialize，返回的函数可以取消尚未开始的初始化
func (s *Store) InitializeAfter(ctx context.Context, delay time.Duration) (cancel func()) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initTimer != nil {
		s.initTimer.Stop()
	}
	t := time.AfterFunc(delay, func() {
		if err := s.Initialize(ctx); err != nil {
			s.log.Warn("延迟初始化未完全成功", zap.Error(err))
		}
	})
	s.initTimer = t
	return func() { t.Stop() }
}

// Refresh 重新加载历史记录和文件夹，不重置初始化状态
func (s *Store) Refresh(ctx context.Context) error {
	err := s.load(ctx)
	s.emit()
	return err
}

// StartAutoRefresh 按 cron 表达式定时刷新，schedule 为空时不启动
func (s *Store) StartAutoRefresh(schedule string) error {
	if schedule == "" {
		return nil
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := s.Refresh(context.Background()); err != nil {
			s.log.Warn("定时刷新失败", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("解析刷新计划 %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("定时刷新已启动", zap.String("schedule", schedule))
	return nil
}

// Dispose 停止定时任务、清除订阅和已加载的数据并重置初始化状态，
// 之后可以再次 Initialize。尚未完成的加载结果会被丢弃。
func (s *Store) Dispose() {
	s.initMu.Lock()
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.initDone = nil

	tree, _ := model.NewFolderTree(nil)
	s.mu.Lock()
	s.initialized = false
	s.epoch++
	s.tasks = nil
	s.tree = tree
	s.currentTaskID = ""
	s.mu.Unlock()
	s.initMu.Unlock()

	s.listenersMu.Lock()
	s.listeners = make(map[int]func())
	s.listenersMu.Unlock()
}

// load 并发加载历史记录和文件夹，两者互不影响。
// 多个加载可以重叠，全部结束后 IsLoading 才变为 false。
func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	s.loads++
	epoch := s.epoch
	s.mu.Unlock()
	s.emit()

	defer func() {
		s.mu.Lock()
		s.loads--
		s.mu.Unlock()
	}()

	var g errgroup.Group
	var taskErr, folderErr error
	g.Go(func() error {
		taskErr = s.loadTasks(ctx, epoch)
		return nil
	})
	g.Go(func() error {
		folderErr = s.loadFolders(ctx, epoch)
		return nil
	})
	_ = g.Wait()

	return errors.Join(taskErr, folderErr)
}

func (s *Store) loadTasks(ctx context.Context, epoch uint64) error {
	tasks, err := s.fetchAllTasks(ctx)
	if err != nil {
		s.log.Error("从数据库加载历史记录失败", zap.Error(err))
		s.notify(NoticeError, "加载历史记录失败", err)
		return fmt.Errorf("加载历史记录: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.tasks = tasks
	s.log.Debug("历史记录加载完成", zap.Int("count", len(tasks)))
	return nil
}

// fetchAllTasks 分页拉取全部历史记录。服务端忽略分页参数时
// 会重复返回相同记录，按ID去重并在没有新记录时停止。
func (s *Store) fetchAllTasks(ctx context.Context) ([]model.Task, error) {
	var (
		all  []model.Task
		seen = make(map[string]struct{})
	)
	for offset := 0; ; offset += s.pageSize {
		page, err := s.history.ListAll(ctx, s.pageSize, offset)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, t := range page {
			if t.ID == "" {
				continue
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			all = append(all, t)
			added++
		}

		if len(page) < s.pageSize || len(page) > s.pageSize || added == 0 {
			break
		}
	}
	return all, nil
}

func (s *Store) loadFolders(ctx context.Context, epoch uint64) error {
	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		s.log.Error("从数据库加载文件夹失败", zap.Error(err))
		s.notify(NoticeError, "加载文件夹失败", err)
		return fmt.Errorf("加载文件夹: %w", err)
	}

	tree, rerooted := model.NewFolderTree(folders)
	if len(rerooted) > 0 {
		s.log.Warn("文件夹父级无效，已移到根目录", zap.Strings("folder_ids", rerooted))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.tree = tree
	s.log.Debug("文件夹加载完成", zap.Int("count", tree.Len()))
	return nil
}
