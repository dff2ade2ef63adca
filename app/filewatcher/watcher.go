package filewatcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"note-sync/app/logger"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay 一批文件变化的合并窗口
const DefaultDelay = 200 * time.Millisecond

// FileWatcher 监控单个目录中文件的变化，窗口期内的多次变化合并为一次回调
type FileWatcher struct {
	dir      string
	delay    time.Duration
	onChange func(names []string)
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
}

// NewFileWatcher 创建文件监控器，onChange 收到的是发生变化的文件名（不含目录）
func NewFileWatcher(dir string, delay time.Duration, onChange func(names []string), log *logger.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &FileWatcher{
		dir:      dir,
		delay:    delay,
		onChange: onChange,
		watcher:  watcher,
		logger:   log,
		stopCh:   make(chan struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// Start 启动文件监控，目录不存在时会先创建
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watching {
		return fmt.Errorf("文件监控器[%s]已经在运行", fw.dir)
	}

	if err := os.MkdirAll(fw.dir, 0755); err != nil {
		return fmt.Errorf("创建监控目录失败: %w", err)
	}
	if err := fw.watcher.Add(fw.dir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	fw.watching = true
	fw.wg.Add(1)
	go fw.watchLoop()

	fw.logger.Infof("文件监控器已启动，监控目录: %s", fw.dir)
	return nil
}

// Stop 停止文件监控，尚未触发的回调会被丢弃
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.watching {
		return nil
	}

	close(fw.stopCh)
	err := fw.watcher.Close()
	fw.wg.Wait()
	fw.watching = false

	fw.pendingMu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
	fw.pendingMu.Unlock()

	fw.logger.Infof("文件监控器[%s]已停止", fw.dir)
	return err
}

// watchLoop 监控事件循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Errorf("文件监控器[%s]错误: %v", fw.dir, err)

		case <-fw.stopCh:
			return
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	fw.pendingMu.Lock()
	defer fw.pendingMu.Unlock()

	fw.pending[filepath.Base(event.Name)] = struct{}{}
	if fw.timer == nil {
		fw.timer = time.AfterFunc(fw.delay, fw.flush)
	}
}

func (fw *FileWatcher) flush() {
	fw.pendingMu.Lock()
	names := make([]string, 0, len(fw.pending))
	for name := range fw.pending {
		names = append(names, name)
	}
	fw.pending = make(map[string]struct{})
	fw.timer = nil
	fw.pendingMu.Unlock()

	if len(names) == 0 {
		return
	}
	sort.Strings(names)
	fw.logger.Debugf("监控器[%s]检测到文件变化: %v", fw.dir, names)
	fw.onChange(names)
}
