package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"note-sync/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 文件夹: a(根) -> b, c(根)；任务: t1 在 b，t2 在根，t3 在 a
func loadedHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(
		[]model.Task{sampleTask("t1", "b"), sampleTask("t2", ""), sampleTask("t3", "a")},
		[]model.Folder{sampleFolder("a", ""), sampleFolder("b", "a"), sampleFolder("c", "")},
	)
	require.NoError(t, h.store.Initialize(context.Background()))
	return h
}

func TestOptimisticMutations_RollbackOnRemoteFailure(t *testing.T) {
	ops := map[string]func(ctx context.Context, s *Store) error{
		"add folder": func(ctx context.Context, s *Store) error {
			_, err := s.AddFolder(ctx, "new", "a")
			return err
		},
		"remove folder": func(ctx context.Context, s *Store) error {
			return s.RemoveFolder(ctx, "a")
		},
		"rename folder": func(ctx context.Context, s *Store) error {
			return s.RenameFolder(ctx, "b", "renamed")
		},
		"toggle folder": func(ctx context.Context, s *Store) error {
			return s.ToggleFolder(ctx, "c")
		},
		"move folder": func(ctx context.Context, s *Store) error {
			return s.MoveFolder(ctx, "c", "b")
		},
		"move task": func(ctx context.Context, s *Store) error {
			return s.MoveTaskToFolder(ctx, "t2", "c")
		},
		"move task to root": func(ctx context.Context, s *Store) error {
			return s.MoveTaskToFolder(ctx, "t1", "")
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			h := loadedHarness(t)
			h.folders.err = errRemote

			folders := h.store.Folders()
			tasks := h.store.Tasks()
			roots, rootTasks := h.store.Tree()

			err := op(context.Background(), h.store)
			require.ErrorIs(t, err, errRemote)

			assert.Equal(t, folders, h.store.Folders())
			assert.Equal(t, tasks, h.store.Tasks())
			gotRoots, gotRootTasks := h.store.Tree()
			assert.Equal(t, roots, gotRoots)
			assert.Equal(t, rootTasks, gotRootTasks)
			assert.Len(t, h.notices.notices, 1)
			assert.Equal(t, NoticeError, h.notices.notices[0].Level)
		})
	}
}

func TestOptimisticMutations_LocalStateVisibleBeforeRemote(t *testing.T) {
	h := loadedHarness(t)

	var seen string
	remote := &observingFolders{fakeFolders: h.folders, onUpdate: func() {
		f, _ := h.store.Folder("b")
		seen = f.Name
	}}
	h.store.folders = remote

	require.NoError(t, h.store.RenameFolder(context.Background(), "b", "  trimmed  "))
	assert.Equal(t, "trimmed", seen)
}

type observingFolders struct {
	*fakeFolders
	onUpdate func()
}

func (o *observingFolders) Update(ctx context.Context, folderID string, update model.FolderUpdate) error {
	o.onUpdate()
	return o.fakeFolders.Update(ctx, folderID, update)
}

func TestRemoveFolder_DetachesTasksAndRemovesSubtree(t *testing.T) {
	h := loadedHarness(t)

	require.NoError(t, h.store.RemoveFolder(context.Background(), "a"))

	assert.Equal(t, []string{"c"}, folderIDs(h.store.Folders()))
	for _, task := range h.store.Tasks() {
		assert.Empty(t, task.FolderID, "task %s", task.ID)
	}
	assert.Len(t, h.store.Tasks(), 3)
	assert.Equal(t, []string{"delete a"}, h.folders.calls)

	roots, rootTasks := h.store.Tree()
	assert.Len(t, roots, 1)
	assert.Len(t, rootTasks, 3)
}

func TestFolderValidation_RejectedBeforeRemote(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()

	_, err := h.store.AddFolder(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = h.store.AddFolder(ctx, "x", "missing")
	assert.ErrorIs(t, err, ErrFolderNotFound)

	assert.ErrorIs(t, h.store.RenameFolder(ctx, "a", ""), ErrInvalidName)
	assert.ErrorIs(t, h.store.RenameFolder(ctx, "zzz", "name"), ErrFolderNotFound)
	assert.ErrorIs(t, h.store.RemoveFolder(ctx, "zzz"), ErrFolderNotFound)
	assert.ErrorIs(t, h.store.MoveFolder(ctx, "a", "b"), ErrFolderCycle)
	assert.ErrorIs(t, h.store.MoveFolder(ctx, "a", "a"), ErrFolderCycle)
	assert.ErrorIs(t, h.store.MoveTaskToFolder(ctx, "nope", ""), ErrTaskNotFound)
	assert.ErrorIs(t, h.store.MoveTaskToFolder(ctx, "t1", "zzz"), ErrFolderNotFound)

	assert.Empty(t, h.folders.calls)
	assert.Len(t, h.notices.notices, 9)
}

func TestAddFolder_Success(t *testing.T) {
	h := loadedHarness(t)

	f, err := h.store.AddFolder(context.Background(), " Notes ", "a")
	require.NoError(t, err)
	assert.Equal(t, "Notes", f.Name)
	assert.Equal(t, "a", f.ParentID)
	assert.True(t, f.IsExpanded)

	got, ok := h.store.Folder(f.ID)
	require.True(t, ok)
	assert.Equal(t, f, got)
	assert.Equal(t, []string{"create " + f.ID}, h.folders.calls)
}

func TestMoveFolderAndToggle(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.MoveFolder(ctx, "c", "b"))
	c, _ := h.store.Folder("c")
	assert.Equal(t, "b", c.ParentID)

	require.NoError(t, h.store.MoveFolder(ctx, "b", ""))
	b, _ := h.store.Folder("b")
	assert.Empty(t, b.ParentID)

	require.NoError(t, h.store.ToggleFolder(ctx, "a"))
	a, _ := h.store.Folder("a")
	assert.False(t, a.IsExpanded)
}

func TestMoveTaskToFolder_SameFolderSkipsRemote(t *testing.T) {
	h := loadedHarness(t)

	require.NoError(t, h.store.MoveTaskToFolder(context.Background(), "t1", "b"))
	assert.Empty(t, h.folders.calls)

	require.NoError(t, h.store.MoveTaskToFolder(context.Background(), "t1", "c"))
	task, _ := h.store.Task("t1")
	assert.Equal(t, "c", task.FolderID)
	assert.Equal(t, []string{"move t1 c"}, h.folders.calls)
}

func TestFolderTreeStaysAcyclic(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()

	d, err := h.store.AddFolder(ctx, "d", "b")
	require.NoError(t, err)
	e, err := h.store.AddFolder(ctx, "e", d.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, h.store.MoveFolder(ctx, "a", e.ID), ErrFolderCycle)
	require.NoError(t, h.store.RemoveFolder(ctx, "b"))
	_, err = h.store.AddFolder(ctx, "f", "c")
	require.NoError(t, err)

	folders := h.store.Folders()
	byID := make(map[string]model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	for _, f := range folders {
		steps := 0
		for cur := f.ParentID; cur != ""; cur = byID[cur].ParentID {
			_, ok := byID[cur]
			require.True(t, ok, "folder %s has dangling ancestor %s", f.ID, cur)
			steps++
			require.Less(t, steps, len(folders), "cycle through %s", f.ID)
		}
	}
	assert.NotContains(t, folderIDs(folders), d.ID)
	assert.NotContains(t, folderIDs(folders), e.ID)
}

// requireRootedTree 每个文件夹沿父级向上都能到达根目录，任务不指向已删除的文件夹
func requireRootedTree(t *testing.T, s *Store) {
	t.Helper()
	folders := s.Folders()
	byID := make(map[string]model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	for _, f := range folders {
		steps := 0
		for cur := f.ParentID; cur != ""; cur = byID[cur].ParentID {
			_, ok := byID[cur]
			require.True(t, ok, "folder %s has dangling ancestor %s", f.ID, cur)
			steps++
			require.LessOrEqual(t, steps, len(folders), "cycle through %s", f.ID)
		}
	}
	for _, task := range s.Tasks() {
		if task.FolderID != "" {
			require.Contains(t, byID, task.FolderID, "task %s in missing folder", task.ID)
		}
	}
}

func TestFolderTreeStaysAcyclic_RandomSequences(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		h := loadedHarness(t)
		ctx := context.Background()

		pick := func() string {
			folders := h.store.Folders()
			if len(folders) == 0 {
				return ""
			}
			return folders[rng.IntN(len(folders))].ID
		}
		pickParent := func() string {
			if rng.IntN(4) == 0 {
				return ""
			}
			return pick()
		}

		for step := range 60 {
			h.folders.mu.Lock()
			h.folders.err = nil
			if rng.IntN(5) == 0 {
				h.folders.err = errRemote
			}
			h.folders.mu.Unlock()

			var err error
			switch op := rng.IntN(10); {
			case op < 4:
				_, err = h.store.AddFolder(ctx, "f", pickParent())
			case op < 8:
				if id := pick(); id != "" {
					err = h.store.MoveFolder(ctx, id, pickParent())
				}
			case op < 9:
				if id := pick(); id != "" {
					err = h.store.RemoveFolder(ctx, id)
				}
			default:
				tasks := h.store.Tasks()
				err = h.store.MoveTaskToFolder(ctx, tasks[rng.IntN(len(tasks))].ID, pickParent())
			}
			if err != nil && !errors.Is(err, errRemote) && !errors.Is(err, ErrFolderCycle) {
				t.Fatalf("seed %d step %d: unexpected error %v", seed, step, err)
			}
			requireRootedTree(t, h.store)
		}
	}
}

func folderIDs(folders []model.Folder) []string {
	out := make([]string, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.ID)
	}
	return out
}
