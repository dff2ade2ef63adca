package handler

import (
	"net/http"

	"note-sync/app/logger"
	"note-sync/app/model"
	"note-sync/app/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerationHandler 笔记生成任务的登记与取消。
// 真正的生成由外部后端完成，这里只维护历史记录中的任务状态。
type GenerationHandler struct {
	history *service.HistoryService
	log     *logger.Logger
}

func NewGenerationHandler(history *service.HistoryService, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{history: history, log: log}
}

// GenerateNote 登记生成任务，未指定任务ID时自动生成
func (h *GenerationHandler) GenerateNote(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}
	if err := h.history.CreatePending(req.TaskID, req.FormData); err != nil {
		h.log.Errorf("登记生成任务失败: %v", err)
		failWith(c, err)
		return
	}
	success(c, model.GenerateResponse{TaskID: req.TaskID})
}

// DeleteTask 取消后端任务，只做确认
func (h *GenerationHandler) DeleteTask(c *gin.Context) {
	var req model.DeleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	h.log.Infof("取消生成任务: video_id=%s platform=%s", req.VideoID, req.Platform)
	success(c, nil)
}
