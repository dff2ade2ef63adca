package gateway

import (
	"context"
	"net/http"
	"net/url"

	"note-sync/app/model"
)

// FolderGateway 文件夹接口
type FolderGateway struct {
	client *Client
}

func NewFolderGateway(client *Client) *FolderGateway {
	return &FolderGateway{client: client}
}

func (g *FolderGateway) ListAll(ctx context.Context) ([]model.Folder, error) {
	var records []model.FolderRecord
	if err := g.client.do(ctx, http.MethodGet, "/folders", nil, nil, &records); err != nil {
		return nil, err
	}

	folders := make([]model.Folder, 0, len(records))
	for _, r := range records {
		folders = append(folders, model.FolderFromRecord(r))
	}
	return folders, nil
}

func (g *FolderGateway) Create(ctx context.Context, folder model.Folder) error {
	if err := g.client.do(ctx, http.MethodPost, "/folders", nil, model.RecordFromFolder(folder), nil); err != nil {
		return err
	}
	g.client.log.Debugf("文件夹创建成功: %s", folder.Name)
	return nil
}

func (g *FolderGateway) Update(ctx context.Context, folderID string, update model.FolderUpdate) error {
	return g.client.do(ctx, http.MethodPut, "/folders/"+url.PathEscape(folderID), nil, update, nil)
}

// Delete 远端删除文件夹及其子文件夹，其中的历史记录移回根目录
func (g *FolderGateway) Delete(ctx context.Context, folderID string) error {
	return g.client.do(ctx, http.MethodDelete, "/folders/"+url.PathEscape(folderID), nil, nil, nil)
}

// MoveTask 移动历史记录，folderID 为空表示根目录
func (g *FolderGateway) MoveTask(ctx context.Context, taskID, folderID string) error {
	req := model.MoveHistoryRequest{TaskID: taskID}
	if folderID != "" {
		req.FolderID = &folderID
	}
	if err := g.client.do(ctx, http.MethodPost, "/folders/move-history", nil, req, nil); err != nil {
		return err
	}
	g.client.log.Debugf("历史记录移动成功: %s -> %s", taskID, rootIfEmpty(folderID))
	return nil
}

func rootIfEmpty(folderID string) string {
	if folderID == "" {
		return "root"
	}
	return folderID
}
