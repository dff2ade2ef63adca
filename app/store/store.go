package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"note-sync/app/logger"
	"note-sync/app/model"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	ErrDisposed       = errors.New("store 已释放")
	ErrTaskNotFound   = errors.New("任务不存在")
	ErrFolderNotFound = model.ErrUnknownFolder
	ErrFolderCycle    = model.ErrFolderCycle
	ErrInvalidName    = errors.New("文件夹名称不能为空")
)

// HistoryGateway 远端历史记录
type HistoryGateway interface {
	ListAll(ctx context.Context, limit, offset int) ([]model.Task, error)
	Delete(ctx context.Context, taskID string) error
	Upsert(ctx context.Context, task model.Task) error
}

// FolderGateway 远端文件夹
type FolderGateway interface {
	ListAll(ctx context.Context) ([]model.Folder, error)
	Create(ctx context.Context, folder model.Folder) error
	Update(ctx context.Context, folderID string, update model.FolderUpdate) error
	Delete(ctx context.Context, folderID string) error
	MoveTask(ctx context.Context, taskID, folderID string) error
}

// GenerationBackend 笔记生成后端
type GenerationBackend interface {
	Submit(ctx context.Context, form model.FormData, taskID string) (string, error)
	Cancel(ctx context.Context, videoID, platform string) error
}

const defaultPageSize = 100

// Store 任务与文件夹的唯一内存副本。所有修改都经由它的方法完成，
// 本地状态在任何网络请求发出之前就已对读者可见。
type Store struct {
	history  HistoryGateway
	folders  FolderGateway
	backend  GenerationBackend
	log      *logger.Logger
	notifier Notifier
	pageSize int
	now      func() time.Time
	newID    func() string

	mu            sync.RWMutex
	tasks         []model.Task
	tree          *model.FolderTree
	currentTaskID string
	loads         int    // 进行中的加载数
	epoch         uint64 // Dispose 时递增，旧的加载结果不再生效
	initialized   bool

	initMu    sync.Mutex
	initDone  chan struct{}
	initTimer *time.Timer
	cron      *cron.Cron

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int
}

// Option 配置 Store
type Option func(*Store)

// WithNotifier 设置用户可见提示的接收者，默认写日志
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithPageSize 加载历史记录时的分页大小
func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithClock 替换时间来源，测试用
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 替换ID生成器，测试用
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New 创建 Store，需要调用 Initialize 之后集合才可信
func New(history HistoryGateway, folders FolderGateway, backend GenerationBackend, log *logger.Logger, opts ...Option) *Store {
	tree, _ := model.NewFolderTree(nil)
	s := &Store{
		history:   history,
		folders:   folders,
		backend:   backend,
		log:       log.Named("store"),
		pageSize:  defaultPageSize,
		now:       time.Now,
		newID:     uuid.NewString,
		tree:      tree,
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier(s.log)
	}
	return s
}

// Tasks 返回全部任务的副本，新任务在前
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Task 按ID获取任务
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// HasTask 判断任务ID是否在当前集合中
func (s *Store) HasTask(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Folders 按列表顺序返回全部文件夹
func (s *Store) Folders() []model.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.List()
}

func (s *Store) Folder(id string) (model.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Get(id)
}

// Tree 当前全部任务的树形视图
func (s *Store) Tree() ([]model.FolderNode, []model.Task) {
	return s.TreeWith(s.Tasks())
}

// TreeWith 使用给定任务（例如搜索结果）构建树形视图
func (s *Store) TreeWith(tasks []model.Task) ([]model.FolderNode, []model.Task) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Build(tasks)
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads > 0
}

// IsInitialized 为 false 时任务和文件夹集合还不可信
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Subscribe 注册状态变化回调，返回取消函数
func (s *Store) Subscribe(fn func()) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// emit 通知订阅者，调用时不能持有 s.mu
func (s *Store) emit() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// indexOf 需要持有 s.mu
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
