package store

import (
	"context"
	"strings"

	"note-sync/app/model"
)

// AddFolder 创建文件夹，parentID 为空表示根目录
func (s *Store) AddFolder(ctx context.Context, name, parentID string) (model.Folder, error) {
	var created model.Folder
	err := performOptimistic(ctx, s, mutation[model.Folder]{
		name:    "创建文件夹",
		failMsg: "创建文件夹失败",
		capture: func() (model.Folder, error) {
			name = strings.TrimSpace(name)
			if name == "" {
				return model.Folder{}, ErrInvalidName
			}
			if parentID != "" && !s.tree.Has(parentID) {
				return model.Folder{}, ErrFolderNotFound
			}
			created = model.Folder{
				ID:         s.newID(),
				Name:       name,
				ParentID:   parentID,
				CreatedAt:  s.now(),
				IsExpanded: true,
			}
			return created, nil
		},
		apply: func(f model.Folder) {
			_ = s.tree.Insert(f, -1)
		},
		remote: func(ctx context.Context) error {
			return s.folders.Create(ctx, created)
		},
		restore: func(f model.Folder) {
			s.detachTasks(s.tree.RemoveSubtree(f.ID))
		},
	})
	if err != nil {
		return model.Folder{}, err
	}
	return created, nil
}

// folderRemoval 删除文件夹的回滚快照
type folderRemoval struct {
	removed    []model.IndexedFolder
	taskFolder map[string]string // 任务ID -> 原文件夹ID
}

// RemoveFolder 删除文件夹及其全部子文件夹，其中的任务移回根目录
func (s *Store) RemoveFolder(ctx context.Context, id string) error {
	return performOptimistic(ctx, s, mutation[*folderRemoval]{
		name:    "删除文件夹",
		failMsg: "删除文件夹失败",
		capture: func() (*folderRemoval, error) {
			if !s.tree.Has(id) {
				return nil, ErrFolderNotFound
			}
			snap := &folderRemoval{taskFolder: make(map[string]string)}
			subtree := make(map[string]struct{})
			for _, fid := range s.tree.Subtree(id) {
				subtree[fid] = struct{}{}
			}
			for _, t := range s.tasks {
				if _, ok := subtree[t.FolderID]; ok {
					snap.taskFolder[t.ID] = t.FolderID
				}
			}
			return snap, nil
		},
		apply: func(snap *folderRemoval) {
			snap.removed = s.tree.RemoveSubtree(id)
			for i := range s.tasks {
				if _, ok := snap.taskFolder[s.tasks[i].ID]; ok {
					s.tasks[i].FolderID = ""
				}
			}
		},
		remote: func(ctx context.Context) error {
			return s.folders.Delete(ctx, id)
		},
		restore: func(snap *folderRemoval) {
			s.tree.Restore(snap.removed)
			for i := range s.tasks {
				if folderID, ok := snap.taskFolder[s.tasks[i].ID]; ok && s.tree.Has(folderID) {
					s.tasks[i].FolderID = folderID
				}
			}
		},
	})
}

// RenameFolder 重命名文件夹
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	return performOptimistic(ctx, s, mutation[string]{
		name:    "重命名文件夹",
		failMsg: "重命名文件夹失败",
		capture: func() (string, error) {
			if name == "" {
				return "", ErrInvalidName
			}
			f, ok := s.tree.Get(id)
			if !ok {
				return "", ErrFolderNotFound
			}
			return f.Name, nil
		},
		apply: func(string) {
			s.updateFolder(id, func(f *model.Folder) { f.Name = name })
		},
		remote: func(ctx context.Context) error {
			return s.folders.Update(ctx, id, model.FolderUpdate{Name: &name})
		},
		restore: func(old string) {
			s.updateFolder(id, func(f *model.Folder) { f.Name = old })
		},
	})
}

// ToggleFolder 切换文件夹展开状态
func (s *Store) ToggleFolder(ctx context.Context, id string) error {
	var expanded bool
	return performOptimistic(ctx, s, mutation[bool]{
		name:    "切换文件夹状态",
		failMsg: "更新文件夹状态失败",
		capture: func() (bool, error) {
			f, ok := s.tree.Get(id)
			if !ok {
				return false, ErrFolderNotFound
			}
			expanded = !f.IsExpanded
			return f.IsExpanded, nil
		},
		apply: func(bool) {
			s.updateFolder(id, func(f *model.Folder) { f.IsExpanded = expanded })
		},
		remote: func(ctx context.Context) error {
			return s.folders.Update(ctx, id, model.FolderUpdate{IsExpanded: &expanded})
		},
		restore: func(old bool) {
			s.updateFolder(id, func(f *model.Folder) { f.IsExpanded = old })
		},
	})
}

// MoveFolder 把文件夹移动到 parentID 下，parentID 为空表示根目录。
// 目标是自身或其后代时直接拒绝。
func (s *Store) MoveFolder(ctx context.Context, id, parentID string) error {
	return performOptimistic(ctx, s, mutation[string]{
		name:    "移动文件夹",
		failMsg: "移动文件夹失败",
		capture: func() (string, error) {
			if err := s.tree.CheckReparent(id, parentID); err != nil {
				return "", err
			}
			f, _ := s.tree.Get(id)
			return f.ParentID, nil
		},
		apply: func(string) {
			s.reparent(id, parentID)
		},
		remote: func(ctx context.Context) error {
			return s.folders.Update(ctx, id, model.FolderUpdate{ParentID: &parentID})
		},
		restore: func(old string) {
			if s.tree.CheckReparent(id, old) == nil {
				s.reparent(id, old)
			}
		},
	})
}

// MoveTaskToFolder 把任务移动到文件夹，folderID 为空表示根目录
func (s *Store) MoveTaskToFolder(ctx context.Context, taskID, folderID string) error {
	unchanged := false
	err := performOptimistic(ctx, s, mutation[string]{
		name:    "移动任务到文件夹",
		failMsg: "移动任务失败",
		capture: func() (string, error) {
			i := s.indexOf(taskID)
			if i < 0 {
				return "", ErrTaskNotFound
			}
			if folderID != "" && !s.tree.Has(folderID) {
				return "", ErrFolderNotFound
			}
			unchanged = s.tasks[i].FolderID == folderID
			return s.tasks[i].FolderID, nil
		},
		apply: func(string) {
			s.setTaskFolder(taskID, folderID)
		},
		remote: func(ctx context.Context) error {
			if unchanged {
				return nil
			}
			return s.folders.MoveTask(ctx, taskID, folderID)
		},
		restore: func(old string) {
			if old == "" || s.tree.Has(old) {
				s.setTaskFolder(taskID, old)
			}
		},
	})
	return err
}

// 以下方法都需要持有 s.mu

func (s *Store) updateFolder(id string, fn func(*model.Folder)) {
	f, ok := s.tree.Get(id)
	if !ok {
		return
	}
	fn(&f)
	_ = s.tree.Put(f)
}

func (s *Store) reparent(id, parentID string) {
	s.updateFolder(id, func(f *model.Folder) { f.ParentID = parentID })
}

func (s *Store) setTaskFolder(taskID, folderID string) {
	if i := s.indexOf(taskID); i >= 0 {
		s.tasks[i].FolderID = folderID
	}
}

// detachTasks 把属于已删除文件夹的任务移回根目录
func (s *Store) detachTasks(removed []model.IndexedFolder) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(removed))
	for _, r := range removed {
		gone[r.Folder.ID] = struct{}{}
	}
	for i := range s.tasks {
		if _, ok := gone[s.tasks[i].FolderID]; ok {
			s.tasks[i].FolderID = ""
		}
	}
}
