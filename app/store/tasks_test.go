package store

import (
	"context"
	"encoding/json"
	"testing"

	"note-sync/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPendingTask_PrependsAndSelects(t *testing.T) {
	h := loadedHarness(t)

	task := h.store.AddPendingTask("n1", "youtube", model.FormData{VideoURL: "https://youtu.be/x", Platform: "youtube"})
	assert.Equal(t, model.TaskStatusPending, task.Status)

	tasks := h.store.Tasks()
	require.Len(t, tasks, 4)
	assert.Equal(t, "n1", tasks[0].ID)

	current, ok := h.store.CurrentTask()
	require.True(t, ok)
	assert.Equal(t, "n1", current.ID)

	h.store.AddPendingTask("n1", "youtube", model.FormData{})
	assert.Len(t, h.store.Tasks(), 4)
}

func TestUpdateTaskContent_SuccessIsIdempotent(t *testing.T) {
	h := loadedHarness(t)
	before, _ := h.store.Task("t1")

	changed := h.store.UpdateTaskContent("t1", model.ContentPatch(model.TaskStatusSuccess, "x"))
	assert.False(t, changed)

	after, _ := h.store.Task("t1")
	assert.True(t, before.Equal(after))
	assert.False(t, after.Markdown.IsVersioned())
}

func TestUpdateTaskContent_StringPatchesPrependVersions(t *testing.T) {
	h := loadedHarness(t)
	h.store.AddPendingTask("n1", "bilibili", model.FormData{ModelName: "gpt", Style: "minimal"})

	require.True(t, h.store.UpdateTaskContent("n1", model.ContentPatch(model.TaskStatusRunning, "first")))
	require.True(t, h.store.UpdateTaskContent("n1", model.ContentPatch(model.TaskStatusSuccess, "second")))

	task, _ := h.store.Task("n1")
	assert.Equal(t, model.TaskStatusSuccess, task.Status)
	require.True(t, task.Markdown.IsVersioned())

	versions := task.Markdown.Versions()
	require.Len(t, versions, 2)
	assert.Equal(t, "second", versions[0].Content)
	assert.Equal(t, "first", versions[1].Content)
	assert.Equal(t, "gpt", versions[0].ModelName)
	assert.Equal(t, "minimal", versions[0].Style)
	assert.NotEqual(t, versions[0].VerID, versions[1].VerID)
}

func TestUpdateTaskContent_LegacyContentBecomesOlderVersion(t *testing.T) {
	h := loadedHarness(t)
	failed := model.TaskStatusFailed
	require.True(t, h.store.UpdateTaskContent("t2", model.TaskPatch{Status: &failed}))

	require.True(t, h.store.UpdateTaskContent("t2", model.ContentPatch(model.TaskStatusSuccess, "retry")))

	task, _ := h.store.Task("t2")
	versions := task.Markdown.Versions()
	require.Len(t, versions, 2)
	assert.Equal(t, "retry", versions[0].Content)
	assert.Equal(t, "note t2", versions[1].Content)
}

func TestUpdateTaskContent_VersionedPatchReplaces(t *testing.T) {
	h := loadedHarness(t)
	md := model.VersionedMarkdown(model.MarkdownVersion{VerID: "v9", Content: "replaced"})
	running := model.TaskStatusRunning

	require.True(t, h.store.UpdateTaskContent("t3", model.TaskPatch{Status: &running, Markdown: &md}))
	task, _ := h.store.Task("t3")
	assert.Equal(t, "replaced", task.Markdown.Content())
	assert.Len(t, task.Markdown.Versions(), 1)

	assert.False(t, h.store.UpdateTaskContent("missing", model.TaskPatch{}))
}

func TestRemoveTask_RemoteFailureDoesNotRestore(t *testing.T) {
	h := loadedHarness(t)
	h.history.deleteErr = errRemote
	h.backend.cancelErr = errRemote
	h.store.SetCurrentTask("t1")

	err := h.store.RemoveTask(context.Background(), "t1")
	require.ErrorIs(t, err, errRemote)

	assert.False(t, h.store.HasTask("t1"))
	_, ok := h.store.CurrentTask()
	assert.False(t, ok)
	assert.Equal(t, []string{"t1"}, h.history.deleted)
	assert.Equal(t, []string{"v-t1@bilibili"}, h.backend.cancelled)
	assert.Equal(t, []string{"删除历史记录失败"}, h.notices.messages())
}

func TestRemoveTask_Success(t *testing.T) {
	h := loadedHarness(t)

	require.NoError(t, h.store.RemoveTask(context.Background(), "t2"))
	assert.Len(t, h.store.Tasks(), 2)
	assert.Empty(t, h.notices.messages())
}

func TestRetryTask(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id fails fast", func(t *testing.T) {
		h := loadedHarness(t)
		assert.ErrorIs(t, h.store.RetryTask(ctx, "nope", nil), ErrTaskNotFound)
		assert.Empty(t, h.backend.submitted)
		assert.Len(t, h.notices.notices, 1)
	})

	t.Run("submit failure keeps status", func(t *testing.T) {
		h := loadedHarness(t)
		h.backend.submitErr = errRemote

		require.ErrorIs(t, h.store.RetryTask(ctx, "t1", nil), errRemote)
		task, _ := h.store.Task("t1")
		assert.Equal(t, model.TaskStatusSuccess, task.Status)
		assert.Equal(t, []string{"重试任务失败"}, h.notices.messages())
	})

	t.Run("override is recorded after submit", func(t *testing.T) {
		h := loadedHarness(t)
		override := model.FormData{VideoURL: "https://example.com/other", Quality: "high"}

		require.NoError(t, h.store.RetryTask(ctx, "t1", &override))
		task, _ := h.store.Task("t1")
		assert.Equal(t, model.TaskStatusPending, task.Status)
		assert.Equal(t, override, task.FormData)
		assert.Equal(t, []model.FormData{override}, h.backend.submitted)
	})

	t.Run("stored form keeps undeclared parameters", func(t *testing.T) {
		h := loadedHarness(t)
		form := model.FormData{
			VideoURL: "https://example.com/t1",
			Platform: "bilibili",
			Extra:    map[string]json.RawMessage{"video_interval": json.RawMessage(`6`)},
		}
		require.True(t, h.store.UpdateTaskContent("t1", model.TaskPatch{FormData: &form}))

		require.NoError(t, h.store.RetryTask(ctx, "t1", nil))
		require.Len(t, h.backend.submitted, 1)
		assert.JSONEq(t, `6`, string(h.backend.submitted[0].Extra["video_interval"]))
	})

	t.Run("stored form data by default", func(t *testing.T) {
		h := loadedHarness(t)
		require.NoError(t, h.store.RetryTask(ctx, "t2", nil))
		assert.Equal(t, "https://example.com/t2", h.backend.submitted[0].VideoURL)
	})
}

func TestSyncTask(t *testing.T) {
	h := loadedHarness(t)

	require.NoError(t, h.store.SyncTask(context.Background(), "t3"))
	require.Len(t, h.history.upserted, 1)
	assert.Equal(t, "t3", h.history.upserted[0].ID)

	assert.ErrorIs(t, h.store.SyncTask(context.Background(), "nope"), ErrTaskNotFound)

	h.history.upsertErr = errRemote
	assert.ErrorIs(t, h.store.SyncTask(context.Background(), "t3"), errRemote)
}

func TestClearTasks(t *testing.T) {
	h := loadedHarness(t)
	h.store.SetCurrentTask("t1")

	h.store.ClearTasks()
	assert.Empty(t, h.store.Tasks())
	_, ok := h.store.CurrentTask()
	assert.False(t, ok)
}
