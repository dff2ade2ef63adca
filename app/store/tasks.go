package store

import (
	"context"
	"fmt"

	"note-sync/app/model"

	"go.uber.org/zap"
)

// AddPendingTask 新提交的任务放在最前并设为当前任务
func (s *Store) AddPendingTask(id, platform string, form model.FormData) model.Task {
	task := model.NewPendingTask(id, platform, form, s.now())

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	s.tasks = append([]model.Task{task}, s.tasks...)
	s.currentTaskID = id
	s.mu.Unlock()

	s.emit()
	return task.Clone()
}

// UpdateTaskContent 合并后端上报的进度/内容，只修改本地状态。
// 字符串形式的 markdown 会被封装成新版本插到最前。
// 已经 SUCCESS 的任务再收到 SUCCESS 时不做任何修改，返回 false。
func (s *Store) UpdateTaskContent(id string, patch model.TaskPatch) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}

	current := s.tasks[i]
	if current.Status == model.TaskStatusSuccess && patch.Status != nil && *patch.Status == model.TaskStatusSuccess {
		s.mu.Unlock()
		return false
	}

	next := current.Clone()
	if patch.Markdown != nil {
		if patch.Markdown.IsVersioned() {
			next.Markdown = model.VersionedMarkdown(patch.Markdown.Versions()...)
		} else {
			seed := func(content string) model.MarkdownVersion {
				return s.newVersion(current, content)
			}
			next.Markdown = current.Markdown.Prepend(seed(patch.Markdown.Legacy()), seed)
		}
	}
	patch.ApplyScalars(&next)
	s.tasks[i] = next
	s.mu.Unlock()

	s.emit()
	return true
}

func (s *Store) newVersion(t model.Task, content string) model.MarkdownVersion {
	return model.MarkdownVersion{
		VerID:     t.ID + "-" + s.newID(),
		Content:   content,
		Style:     t.FormData.Style,
		ModelName: t.FormData.ModelName,
		CreatedAt: s.now(),
	}
}

// RemoveTask 先移除本地任务，再尽力删除远端历史记录和后端任务。
// 远端失败不会恢复本地任务，返回的是删除历史记录的错误。
func (s *Store) RemoveTask(ctx context.Context, id string) error {
	s.mu.Lock()
	var (
		removed model.Task
		found   bool
	)
	if i := s.indexOf(id); i >= 0 {
		removed, found = s.tasks[i], true
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	}
	if s.currentTaskID == id {
		s.currentTaskID = ""
	}
	s.mu.Unlock()
	s.emit()

	var historyErr error
	if err := s.history.Delete(ctx, id); err != nil {
		s.log.Error("删除数据库历史记录失败", zap.String("task_id", id), zap.Error(err))
		s.notify(NoticeError, "删除历史记录失败", err)
		historyErr = fmt.Errorf("删除历史记录: %w", err)
	}

	if found {
		if err := s.backend.Cancel(ctx, removed.AudioMeta.VideoID, removed.Platform); err != nil {
			s.log.Error("删除后端任务记录失败", zap.String("task_id", id), zap.Error(err))
		}
	}
	return historyErr
}

// ClearTasks 清空本地任务列表
func (s *Store) ClearTasks() {
	s.mu.Lock()
	s.tasks = nil
	s.currentTaskID = ""
	s.mu.Unlock()
	s.emit()
}

// SetCurrentTask 设置当前选中的任务，空串表示取消选中
func (s *Store) SetCurrentTask(id string) {
	s.mu.Lock()
	s.currentTaskID = id
	s.mu.Unlock()
	s.emit()
}

// CurrentTask 当前选中的任务
func (s *Store) CurrentTask() (model.Task, bool) {
	s.mu.RLock()
	id := s.currentTaskID
	s.mu.RUnlock()
	if id == "" {
		return model.Task{}, false
	}
	return s.Task(id)
}

// RetryTask 重新提交任务。override 为 nil 时使用任务保存的参数。
// 只有提交成功后才把任务改回 PENDING。
func (s *Store) RetryTask(ctx context.Context, id string, override *model.FormData) error {
	task, ok := s.Task(id)
	if id == "" || !ok {
		s.notify(NoticeError, "任务不存在", ErrTaskNotFound)
		return ErrTaskNotFound
	}

	form := task.FormData
	if override != nil {
		form = override.Clone()
	}

	if _, err := s.backend.Submit(ctx, form, id); err != nil {
		s.log.Error("重试任务失败", zap.String("task_id", id), zap.Error(err))
		s.notify(NoticeError, "重试任务失败", err)
		return fmt.Errorf("重试任务 %s: %w", id, err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks[i].FormData = form
		s.tasks[i].Status = model.TaskStatusPending
	}
	s.mu.Unlock()
	s.emit()
	return nil
}

// SyncTask 把本地任务保存到远端（存在则更新）
func (s *Store) SyncTask(ctx context.Context, id string) error {
	task, ok := s.Task(id)
	if !ok {
		return ErrTaskNotFound
	}
	if err := s.history.Upsert(ctx, task); err != nil {
		s.log.Error("保存任务到数据库失败", zap.String("task_id", id), zap.Error(err))
		s.notify(NoticeError, "保存历史记录失败", err)
		return fmt.Errorf("保存任务 %s: %w", id, err)
	}
	return nil
}
