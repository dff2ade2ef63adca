package handler

import (
	"errors"
	"net/http"

	"note-sync/app/service"

	"github.com/gin-gonic/gin"
)

// ApiResponse 统一响应格式
type ApiResponse struct {
	Code int    `json:"code"` // 状态码，0表示成功
	Msg  string `json:"msg"`  // 响应消息
	Data any    `json:"data"` // 响应数据
}

// success 返回成功响应
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ApiResponse{Code: 0, Msg: "success", Data: data})
}

// fail 返回错误响应，code 与 HTTP 状态码一致
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, ApiResponse{Code: status, Msg: msg})
}

// failWith 按服务层错误选择状态码
func failWith(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryNotFound), errors.Is(err, service.ErrFolderNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrHistoryExists):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrFolderCycle),
		errors.Is(err, service.ErrInvalidFolderName),
		errors.Is(err, service.ErrInvalidTaskID):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
