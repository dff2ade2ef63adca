package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"note-sync/app/model"
)

// HistoryGateway 历史记录接口，只做任务与远端记录之间的转换
type HistoryGateway struct {
	client *Client
}

func NewHistoryGateway(client *Client) *HistoryGateway {
	return &HistoryGateway{client: client}
}

// ListAll 分页获取历史记录
func (g *HistoryGateway) ListAll(ctx context.Context, limit, offset int) ([]model.Task, error) {
	var records []model.HistoryRecord
	query := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
	if err := g.client.do(ctx, http.MethodGet, "/get_all_history", query, nil, &records); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, model.TaskFromRecord(r))
	}
	return tasks, nil
}

// GetByTaskID 获取单条记录，不存在时返回 ErrNotFound
func (g *HistoryGateway) GetByTaskID(ctx context.Context, taskID string) (model.Task, error) {
	var record *model.HistoryRecord
	if err := g.client.do(ctx, http.MethodGet, "/get_history/"+url.PathEscape(taskID), nil, nil, &record); err != nil {
		return model.Task{}, err
	}
	if record == nil {
		return model.Task{}, ErrNotFound
	}
	return model.TaskFromRecord(*record), nil
}

func (g *HistoryGateway) Delete(ctx context.Context, taskID string) error {
	return g.client.do(ctx, http.MethodDelete, "/delete_history/"+url.PathEscape(taskID), nil, nil, nil)
}

// Upsert 存在则更新，不存在则创建
func (g *HistoryGateway) Upsert(ctx context.Context, task model.Task) error {
	record := model.RecordFromTask(task)
	if err := g.client.do(ctx, http.MethodPost, "/upsert_history", nil, record, nil); err != nil {
		return err
	}
	g.client.log.Debugf("任务保存成功: %s", task.ID)
	return nil
}

// Import 迁移专用，远端已存在同ID记录时返回错误
func (g *HistoryGateway) Import(ctx context.Context, task model.Task) error {
	record := model.RecordFromTask(task)
	return g.client.do(ctx, http.MethodPost, "/import_history", nil, record, nil)
}
