package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"note-sync/app/config"
	"note-sync/app/filewatcher"
	"note-sync/app/logger"
	"note-sync/app/model"

	"github.com/peterbourgon/diskv/v3"
)

// LegacyStore 旧版仅本地保存的数据。除拒绝迁移标记外只读，从不自动清除。
type LegacyStore struct {
	d           *diskv.Diskv
	basePath    string
	blobKey     string
	declinedKey string
	log         *logger.Logger
}

// legacyBlob 旧版持久化格式：{"state": {"tasks": [...]}, "version": 0}
type legacyBlob struct {
	State struct {
		Tasks []json.RawMessage `json:"tasks"`
	} `json:"state"`
}

func flatTransform(string) []string { return []string{} }

// OpenLegacyStore 打开旧版存储目录
func OpenLegacyStore(cfg config.LegacyConfig, log *logger.Logger) *LegacyStore {
	return &LegacyStore{
		d: diskv.New(diskv.Options{
			BasePath:  cfg.Path,
			Transform: flatTransform,
			// 不缓存，旧版文件可能被其他进程改写
			CacheSizeMax: 0,
		}),
		basePath:    cfg.Path,
		blobKey:     cfg.BlobKey,
		declinedKey: cfg.DeclinedKey,
		log:         log.Named("legacy"),
	}
}

// Tasks 读取旧版任务记录。数据不存在或整体无法解析时视为没有数据，
// 单条无法解析或缺少ID的记录会被跳过。
func (l *LegacyStore) Tasks() []model.Task {
	raw, err := l.d.Read(l.blobKey)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.log.Warnf("读取旧版数据失败: %v", err)
		}
		return nil
	}

	var blob legacyBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		l.log.Warnf("旧版数据格式错误，按无数据处理: %v", err)
		return nil
	}

	tasks := make([]model.Task, 0, len(blob.State.Tasks))
	for i, item := range blob.State.Tasks {
		var t model.Task
		if err := json.Unmarshal(item, &t); err != nil {
			l.log.Warnf("跳过第%d条旧版记录: %v", i+1, err)
			continue
		}
		if t.ID == "" {
			l.log.Warnf("跳过第%d条旧版记录: 缺少任务ID", i+1)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// Declined 用户是否已拒绝迁移
func (l *LegacyStore) Declined() bool {
	raw, err := l.d.Read(l.declinedKey)
	if err != nil {
		return false
	}
	return string(raw) == "true"
}

// MarkDeclined 记录用户拒绝迁移，这是唯一会写入旧版存储的操作
func (l *LegacyStore) MarkDeclined() error {
	if err := l.d.Write(l.declinedKey, []byte("true")); err != nil {
		return fmt.Errorf("写入拒绝迁移标记: %w", err)
	}
	return nil
}

// SaveTasks 按旧版格式写入任务，仅供导入工具和测试准备数据
func (l *LegacyStore) SaveTasks(tasks []model.Task) error {
	var blob struct {
		State struct {
			Tasks []model.Task `json:"tasks"`
		} `json:"state"`
		Version int `json:"version"`
	}
	blob.State.Tasks = tasks
	raw, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return l.d.Write(l.blobKey, raw)
}

// Watch 旧版数据文件变化时调用 fn，直到 ctx 结束
func (l *LegacyStore) Watch(ctx context.Context, fn func()) error {
	fw, err := filewatcher.NewFileWatcher(l.basePath, 300*time.Millisecond, func(names []string) {
		if slices.Contains(names, l.blobKey) {
			fn()
		}
	}, l.log)
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return fw.Stop()
}
