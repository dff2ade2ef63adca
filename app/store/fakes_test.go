package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"note-sync/app/logger"
	"note-sync/app/model"
)

var errRemote = errors.New("remote unavailable")

type fakeHistory struct {
	mu        sync.Mutex
	tasks     []model.Task
	listErr   error
	deleteErr error
	upsertErr error
	listCalls atomic.Int32
	deleted   []string
	upserted  []model.Task
	block     chan struct{}
	// hold 非空时每次调用都交出一个放行通道，逐个控制调用何时返回
	hold      chan chan struct{}
}

func (f *fakeHistory) ListAll(ctx context.Context, limit, offset int) ([]model.Task, error) {
	f.listCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.hold != nil {
		release := make(chan struct{})
		f.hold <- release
		<-release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.tasks) {
		return nil, nil
	}
	end := min(offset+limit, len(f.tasks))
	return append([]model.Task(nil), f.tasks[offset:end]...), nil
}

func (f *fakeHistory) Delete(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	return f.deleteErr
}

func (f *fakeHistory) Upsert(ctx context.Context, task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, task)
	return nil
}

type fakeFolders struct {
	mu        sync.Mutex
	folders   []model.Folder
	listErr   error
	err       error // 所有写操作返回的错误
	listCalls atomic.Int32
	calls     []string
}

func (f *fakeFolders) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeFolders) ListAll(ctx context.Context) ([]model.Folder, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Folder(nil), f.folders...), nil
}

func (f *fakeFolders) Create(ctx context.Context, folder model.Folder) error {
	return f.record("create %s", folder.ID)
}

func (f *fakeFolders) Update(ctx context.Context, folderID string, update model.FolderUpdate) error {
	return f.record("update %s", folderID)
}

func (f *fakeFolders) Delete(ctx context.Context, folderID string) error {
	return f.record("delete %s", folderID)
}

func (f *fakeFolders) MoveTask(ctx context.Context, taskID, folderID string) error {
	return f.record("move %s %s", taskID, folderID)
}

type fakeBackend struct {
	mu        sync.Mutex
	submitErr error
	cancelErr error
	submitted []model.FormData
	cancelled []string
}

func (f *fakeBackend) Submit(ctx context.Context, form model.FormData, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, form)
	return taskID, nil
}

func (f *fakeBackend) Cancel(ctx context.Context, videoID, platform string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, videoID+"@"+platform)
	return f.cancelErr
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}
	return out
}

type harness struct {
	store   *Store
	history *fakeHistory
	folders *fakeFolders
	backend *fakeBackend
	notices *noticeRecorder
}

func newHarness(tasks []model.Task, folders []model.Folder) *harness {
	h := &harness{
		history: &fakeHistory{tasks: tasks},
		folders: &fakeFolders{folders: folders},
		backend: &fakeBackend{},
		notices: &noticeRecorder{},
	}
	var seq atomic.Int32
	h.store = New(h.history, h.folders, h.backend, logger.Nop(),
		WithNotifier(h.notices),
		WithPageSize(2),
		WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
	)
	return h
}

func sampleTask(id, folderID string) model.Task {
	return model.Task{
		ID:        id,
		Status:    model.TaskStatusSuccess,
		Platform:  "bilibili",
		CreatedAt: time.Unix(1600000000, 0).UTC(),
		FolderID:  folderID,
		AudioMeta: model.AudioMeta{Title: "title " + id, VideoID: "v-" + id},
		Markdown:  model.LegacyMarkdown("note " + id),
		FormData:  model.FormData{VideoURL: "https://example.com/" + id, Platform: "bilibili", Quality: "medium"},
	}
}

func sampleFolder(id, parentID string) model.Folder {
	return model.Folder{ID: id, Name: "folder " + id, ParentID: parentID, CreatedAt: time.Unix(1600000000, 0).UTC(), IsExpanded: true}
}
