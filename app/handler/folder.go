package handler

import (
	"net/http"

	"note-sync/app/logger"
	"note-sync/app/model"
	"note-sync/app/service"

	"github.com/gin-gonic/gin"
)

// FolderHandler 文件夹处理器
type FolderHandler struct {
	folders *service.FolderService
	log     *logger.Logger
}

// NewFolderHandler 创建文件夹处理器
func NewFolderHandler(folders *service.FolderService, log *logger.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, log: log}
}

func (h *FolderHandler) GetFolders(c *gin.Context) {
	records, err := h.folders.List()
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, records)
}

func (h *FolderHandler) CreateFolder(c *gin.Context) {
	var record model.FolderRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if err := h.folders.Create(&record); err != nil {
		h.log.Warnf("创建文件夹失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, record)
}

func (h *FolderHandler) UpdateFolder(c *gin.Context) {
	var update model.FolderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if err := h.folders.Update(c.Param("id"), update); err != nil {
		h.log.Warnf("更新文件夹失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, nil)
}

// DeleteFolder 删除文件夹及子文件夹，其中的历史记录移回根目录
func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	if err := h.folders.Delete(c.Param("id")); err != nil {
		h.log.Warnf("删除文件夹失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, nil)
}

// MoveHistory 移动历史记录到文件夹
func (h *FolderHandler) MoveHistory(c *gin.Context) {
	var req model.MoveHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" {
		fail(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := h.folders.MoveHistory(req.TaskID, req.FolderID); err != nil {
		failWith(c, err)
		return
	}
	success(c, nil)
}
