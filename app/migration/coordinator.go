package migration

import (
	"context"
	"errors"
	"fmt"

	"note-sync/app/gateway"
	"note-sync/app/logger"
	"note-sync/app/model"

	"go.uber.org/zap"
)

// Importer 迁移用到的远端历史记录接口
type Importer interface {
	GetByTaskID(ctx context.Context, taskID string) (model.Task, error)
	Import(ctx context.Context, task model.Task) error
}

// Refresher 迁移成功后刷新本地视图
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RecordError 单条记录迁移失败的原因
type RecordError struct {
	TaskID string
	Err    error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.TaskID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// Result 一次迁移的统计
type Result struct {
	Total    int
	Imported int
	Skipped  int
	Failed   int
	Errors   []RecordError
}

// OK 没有失败，或者至少有一条导入/跳过
func (r Result) OK() bool {
	return r.Failed == 0 || r.Imported+r.Skipped > 0
}

// Coordinator 把旧版本地记录迁移到远端，每条记录最多导入一次
type Coordinator struct {
	legacy    *LegacyStore
	remote    Importer
	refresher Refresher
	log       *logger.Logger
}

// NewCoordinator refresher 可以为 nil
func NewCoordinator(legacy *LegacyStore, remote Importer, refresher Refresher, log *logger.Logger) *Coordinator {
	return &Coordinator{
		legacy:    legacy,
		remote:    remote,
		refresher: refresher,
		log:       log.Named("migration"),
	}
}

// CheckLegacyData 旧版存储中是否有任务记录及其数量
func (c *Coordinator) CheckLegacyData() (bool, int) {
	n := len(c.legacy.Tasks())
	return n > 0, n
}

// HasDeclinedMigration 用户之前是否拒绝过迁移
func (c *Coordinator) HasDeclinedMigration() bool {
	return c.legacy.Declined()
}

// Decline 记录用户拒绝迁移，之后不再询问
func (c *Coordinator) Decline() error {
	return c.legacy.MarkDeclined()
}

// Pending 有旧版数据且用户没有拒绝过
func (c *Coordinator) Pending() bool {
	has, _ := c.CheckLegacyData()
	return has && !c.HasDeclinedMigration()
}

// Migrate 逐条迁移旧版记录：远端已存在的跳过，其余调用导入接口。
// 旧版数据保持不变，可以重复执行。
func (c *Coordinator) Migrate(ctx context.Context) (Result, error) {
	tasks := c.legacy.Tasks()
	result := Result{Total: len(tasks)}
	if len(tasks) == 0 {
		c.log.Info("旧版存储中没有历史记录")
		return result, nil
	}

	c.log.Info("发现旧版历史记录，开始迁移", zap.Int("count", len(tasks)))

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		skipped, err := c.migrateOne(ctx, t)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, RecordError{TaskID: t.ID, Err: err})
			c.log.Error("迁移记录失败", zap.String("task_id", t.ID), zap.Error(err))
		case skipped:
			result.Skipped++
			c.log.Debug("跳过已存在的记录", zap.String("task_id", t.ID))
		default:
			result.Imported++
			c.log.Debug("导入成功", zap.String("task_id", t.ID))
		}
	}

	c.log.Info("迁移完成",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	if result.OK() && c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.log.Warn("迁移后刷新历史记录失败", zap.Error(err))
		}
	}
	return result, nil
}

func (c *Coordinator) migrateOne(ctx context.Context, t model.Task) (skipped bool, err error) {
	_, err = c.remote.GetByTaskID(ctx, t.ID)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, gateway.ErrNotFound):
		return false, fmt.Errorf("查询远端记录: %w", err)
	}

	if err := c.remote.Import(ctx, t); err != nil {
		return false, fmt.Errorf("导入: %w", err)
	}
	return false, nil
}
