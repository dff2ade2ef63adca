package gateway

import (
	"context"
	"net/http"

	"note-sync/app/model"
)

// GenerationBackend 笔记生成后端，只负责提交和取消
type GenerationBackend struct {
	client *Client
}

func NewGenerationBackend(client *Client) *GenerationBackend {
	return &GenerationBackend{client: client}
}

// Submit 提交生成任务，返回后端分配（或沿用）的任务ID
func (g *GenerationBackend) Submit(ctx context.Context, form model.FormData, taskID string) (string, error) {
	var resp model.GenerateResponse
	req := model.GenerateRequest{FormData: form, TaskID: taskID}
	if err := g.client.do(ctx, http.MethodPost, "/generate_note", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		resp.TaskID = taskID
	}
	return resp.TaskID, nil
}

// Cancel 删除后端的任务记录
func (g *GenerationBackend) Cancel(ctx context.Context, videoID, platform string) error {
	req := model.DeleteTaskRequest{VideoID: videoID, Platform: platform}
	return g.client.do(ctx, http.MethodPost, "/delete_task", nil, req, nil)
}
