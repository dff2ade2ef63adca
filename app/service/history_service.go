package service

import (
	"errors"
	"fmt"

	"note-sync/app/logger"
	"note-sync/app/model"

	"gorm.io/gorm"
)

// HistoryService 历史记录存储
type HistoryService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewHistoryService 创建历史记录服务
func NewHistoryService(db *gorm.DB, log *logger.Logger) *HistoryService {
	return &HistoryService{db: db, log: log}
}

// List 按创建时间倒序分页，limit 小于等于 0 时返回全部
func (s *HistoryService) List(limit, offset int) ([]model.HistoryRecord, error) {
	var records []model.HistoryRecord
	query := s.db.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(max(offset, 0))
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	return records, nil
}

// Get 按任务ID查询，不存在时返回 nil
func (s *HistoryService) Get(taskID string) (*model.HistoryRecord, error) {
	var record model.HistoryRecord
	err := s.db.Where("task_id = ?", taskID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	return &record, nil
}

// Delete 删除历史记录，记录不存在时也视为成功
func (s *HistoryService) Delete(taskID string) error {
	if err := s.db.Where("task_id = ?", taskID).Delete(&model.HistoryRecord{}).Error; err != nil {
		return fmt.Errorf("删除历史记录失败: %w", err)
	}
	return nil
}

// Upsert 存在则整体更新（保留创建时间），不存在则创建
func (s *HistoryService) Upsert(record *model.HistoryRecord) error {
	if record.TaskID == "" {
		return ErrInvalidTaskID
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.HistoryRecord
		err := tx.Where("task_id = ?", record.TaskID).First(&existing).Error
		switch {
		case err == nil:
			record.ID = existing.ID
			if record.CreatedAt.IsZero() {
				record.CreatedAt = existing.CreatedAt
			}
			return tx.Save(record).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.ID = 0
			return tx.Create(record).Error
		default:
			return err
		}
	})
}

// Import 迁移导入，同ID记录已存在时返回 ErrHistoryExists
func (s *HistoryService) Import(record *model.HistoryRecord) error {
	if record.TaskID == "" {
		return ErrInvalidTaskID
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.HistoryRecord{}).Where("task_id = ?", record.TaskID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrHistoryExists
		}
		record.ID = 0
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		s.log.Debugf("导入历史记录: %s", record.TaskID)
		return nil
	})
}

// CreatePending 记录新提交的生成任务，已存在时只把状态改回 PENDING
func (s *HistoryService) CreatePending(taskID string, form model.FormData) error {
	if taskID == "" {
		return ErrInvalidTaskID
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.HistoryRecord
		err := tx.Where("task_id = ?", taskID).First(&existing).Error
		switch {
		case err == nil:
			existing.Status = string(model.TaskStatusPending)
			existing.FormData = &form
			return tx.Save(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model.HistoryRecord{
				TaskID:   taskID,
				Status:   string(model.TaskStatusPending),
				Platform: form.Platform,
				FormData: &form,
			}).Error
		default:
			return err
		}
	})
}
