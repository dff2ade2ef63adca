package service

import "errors"

var (
	ErrHistoryNotFound   = errors.New("历史记录不存在")
	ErrHistoryExists     = errors.New("历史记录已存在")
	ErrFolderNotFound    = errors.New("文件夹不存在")
	ErrFolderCycle       = errors.New("不能把文件夹移动到自身或其子文件夹下")
	ErrInvalidFolderName = errors.New("文件夹名称不能为空")
	ErrInvalidTaskID     = errors.New("任务ID不能为空")
)
