package handler

import (
	"net/http"
	"strconv"

	"note-sync/app/logger"
	"note-sync/app/model"
	"note-sync/app/service"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 历史记录处理器
type HistoryHandler struct {
	history *service.HistoryService
	log     *logger.Logger
}

// NewHistoryHandler 创建历史记录处理器
func NewHistoryHandler(history *service.HistoryService, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, log: log}
}

// GetAllHistory 分页获取历史记录
func (h *HistoryHandler) GetAllHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.history.List(limit, offset)
	if err != nil {
		h.log.Errorf("获取历史记录失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, records)
}

// GetHistory 按任务ID获取，不存在时 data 为 null
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	record, err := h.history.Get(c.Param("task_id"))
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, record)
}

// DeleteHistory 删除历史记录
func (h *HistoryHandler) DeleteHistory(c *gin.Context) {
	if err := h.history.Delete(c.Param("task_id")); err != nil {
		h.log.Errorf("删除历史记录失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, nil)
}

// UpsertHistory 保存历史记录
func (h *HistoryHandler) UpsertHistory(c *gin.Context) {
	var record model.HistoryRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if err := h.history.Upsert(&record); err != nil {
		h.log.Errorf("保存历史记录失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, record)
}

// ImportHistory 迁移导入，同ID记录已存在时返回 409
func (h *HistoryHandler) ImportHistory(c *gin.Context) {
	var record model.HistoryRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if err := h.history.Import(&record); err != nil {
		failWith(c, err)
		return
	}
	success(c, record)
}
