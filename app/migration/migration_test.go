package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"note-sync/app/config"
	"note-sync/app/gateway"
	"note-sync/app/logger"
	"note-sync/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu        sync.Mutex
	records   map[string]model.Task
	imports   int
	importErr map[string]error
	lookupErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]model.Task{}, importErr: map[string]error{}}
}

func (f *fakeRemote) GetByTaskID(ctx context.Context, taskID string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return model.Task{}, f.lookupErr
	}
	t, ok := f.records[taskID]
	if !ok {
		return model.Task{}, gateway.ErrNotFound
	}
	return t, nil
}

func (f *fakeRemote) Import(ctx context.Context, task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.importErr[task.ID]; err != nil {
		return err
	}
	if _, ok := f.records[task.ID]; ok {
		return errors.New("duplicate import")
	}
	f.records[task.ID] = task
	f.imports++
	return nil
}

type countingRefresher struct {
	calls int
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.calls++
	return nil
}

func legacyConfig(dir string) config.LegacyConfig {
	return config.LegacyConfig{Path: dir, BlobKey: "task-storage", DeclinedKey: "migration-skipped"}
}

func writeBlob(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task-storage"), []byte(content), 0o644))
}

const legacyBlobJSON = `{
  "state": {
    "tasks": [
      {"id": "a", "status": "SUCCESS", "platform": "bilibili", "markdown": "note a", "audioMeta": {"title": "A"}},
      {"id": "b", "status": "FAILD", "platform": "youtube", "markdown": [{"ver_id": "b-1", "content": "v1", "created_at": "2025-01-01T00:00:00Z"}]},
      {"id": "c", "status": "PENDING", "platform": "douyin"}
    ],
    "currentTaskId": "a"
  },
  "version": 0
}`

func TestLegacyStore_ReadsPersistedTasks(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, legacyBlobJSON)

	legacy := OpenLegacyStore(legacyConfig(dir), logger.Nop())
	tasks := legacy.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "A", tasks[0].Title())
	assert.Equal(t, model.TaskStatusFailed, tasks[1].Status)
	assert.True(t, tasks[1].Markdown.IsVersioned())
}

func TestLegacyStore_ParseFailureMeansNoData(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, `{"state": {"tasks": [`)

	c := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), newFakeRemote(), nil, logger.Nop())
	has, count := c.CheckLegacyData()
	assert.False(t, has)
	assert.Zero(t, count)

	result, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Zero(t, result.Total)
}

func TestLegacyStore_SkipsBadRecords(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, `{"state": {"tasks": [{"id": "ok"}, {"id": 42}, {"status": "SUCCESS"}]}}`)

	tasks := OpenLegacyStore(legacyConfig(dir), logger.Nop()).Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "ok", tasks[0].ID)
}

func TestCoordinator_DeclineIsPersisted(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, legacyBlobJSON)
	c := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), newFakeRemote(), nil, logger.Nop())

	assert.False(t, c.HasDeclinedMigration())
	assert.True(t, c.Pending())

	require.NoError(t, c.Decline())

	reopened := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), newFakeRemote(), nil, logger.Nop())
	assert.True(t, reopened.HasDeclinedMigration())
	assert.False(t, reopened.Pending())

	has, count := reopened.CheckLegacyData()
	assert.True(t, has)
	assert.Equal(t, 3, count)
}

func TestCoordinator_MigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, legacyBlobJSON)

	remote := newFakeRemote()
	remote.records["c"] = model.Task{ID: "c"}
	refresher := &countingRefresher{}
	c := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), remote, refresher, logger.Nop())

	first, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 3, Imported: 2, Skipped: 1}, first)

	second, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 3, Skipped: 3}, second)
	assert.True(t, second.OK())

	assert.Equal(t, 2, remote.imports)
	assert.Equal(t, 2, refresher.calls)

	// 旧版数据保持不变
	raw, err := os.ReadFile(filepath.Join(dir, "task-storage"))
	require.NoError(t, err)
	assert.Equal(t, legacyBlobJSON, string(raw))
}

func TestCoordinator_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, legacyBlobJSON)

	remote := newFakeRemote()
	remote.importErr["b"] = errors.New("boom")
	c := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), remote, nil, logger.Nop())

	result, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b", result.Errors[0].TaskID)
	assert.True(t, result.OK())

	// 再次执行只会重试失败的记录
	delete(remote.importErr, "b")
	again, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 3, Imported: 1, Skipped: 2}, again)
}

func TestCoordinator_AllFailedIsNotOK(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, legacyBlobJSON)

	remote := newFakeRemote()
	remote.lookupErr = errors.New("connection refused")
	refresher := &countingRefresher{}
	c := NewCoordinator(OpenLegacyStore(legacyConfig(dir), logger.Nop()), remote, refresher, logger.Nop())

	result, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Failed)
	assert.False(t, result.OK())
	assert.Zero(t, remote.imports)
	assert.Zero(t, refresher.calls)
}

func TestLegacyStore_WatchNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	legacy := OpenLegacyStore(legacyConfig(dir), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- legacy.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// 等待监控启动后再写入
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, legacy.SaveTasks([]model.Task{{ID: "x"}}))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not report the change")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, legacy.Tasks(), 1)
}
