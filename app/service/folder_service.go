package service

import (
	"errors"
	"fmt"
	"strings"

	"note-sync/app/logger"
	"note-sync/app/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FolderService 文件夹存储，保证父子关系无环
type FolderService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewFolderService 创建文件夹服务
func NewFolderService(db *gorm.DB, log *logger.Logger) *FolderService {
	return &FolderService{db: db, log: log}
}

// List 按创建时间返回全部文件夹
func (s *FolderService) List() ([]model.FolderRecord, error) {
	var records []model.FolderRecord
	if err := s.db.Order("created_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询文件夹失败: %w", err)
	}
	return records, nil
}

// Create 创建文件夹，ID 为空时自动生成
func (s *FolderService) Create(record *model.FolderRecord) error {
	record.Name = strings.TrimSpace(record.Name)
	if record.Name == "" {
		return ErrInvalidFolderName
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ParentID != nil && *record.ParentID == "" {
		record.ParentID = nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if record.ParentID != nil {
			if err := mustExist(tx, *record.ParentID); err != nil {
				return err
			}
		}
		return tx.Create(record).Error
	})
}

// Update 局部更新，移动父级时拒绝形成环
func (s *FolderService) Update(id string, update model.FolderUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record model.FolderRecord
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFolderNotFound
			}
			return err
		}

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return ErrInvalidFolderName
			}
			record.Name = name
		}
		if update.IsExpanded != nil {
			record.IsExpanded = *update.IsExpanded
		}
		if update.ParentID != nil {
			parentID := *update.ParentID
			if parentID == "" {
				record.ParentID = nil
			} else {
				if err := checkReparent(tx, id, parentID); err != nil {
					return err
				}
				record.ParentID = &parentID
			}
		}
		return tx.Save(&record).Error
	})
}

// Delete 删除文件夹及其全部子文件夹，其中的历史记录移回根目录
func (s *FolderService) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, id); err != nil {
			return err
		}

		ids, err := subtree(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.HistoryRecord{}).
			Where("folder_id IN ?", ids).
			Update("folder_id", nil).Error; err != nil {
			return fmt.Errorf("移动历史记录到根目录失败: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.FolderRecord{}).Error; err != nil {
			return fmt.Errorf("删除文件夹失败: %w", err)
		}
		s.log.Infof("删除文件夹 %s，共 %d 个", id, len(ids))
		return nil
	})
}

// MoveHistory 移动历史记录，folderID 为 nil 表示根目录
func (s *FolderService) MoveHistory(taskID string, folderID *string) error {
	if folderID != nil && *folderID == "" {
		folderID = nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if folderID != nil {
			if err := mustExist(tx, *folderID); err != nil {
				return err
			}
		}
		res := tx.Model(&model.HistoryRecord{}).Where("task_id = ?", taskID).Update("folder_id", folderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHistoryNotFound
		}
		return nil
	})
}

func mustExist(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&model.FolderRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// checkReparent 从新父级向上查找，遇到自身说明会形成环
func checkReparent(tx *gorm.DB, id, parentID string) error {
	seen := map[string]struct{}{}
	for cur := parentID; cur != ""; {
		if cur == id {
			return ErrFolderCycle
		}
		if _, ok := seen[cur]; ok {
			return ErrFolderCycle
		}
		seen[cur] = struct{}{}

		var parent model.FolderRecord
		if err := tx.Select("id", "parent_id").First(&parent, "id = ?", cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFolderNotFound
			}
			return err
		}
		cur = ""
		if parent.ParentID != nil {
			cur = *parent.ParentID
		}
	}
	return nil
}

// subtree 按层查找 id 及其全部后代
func subtree(tx *gorm.DB, id string) ([]string, error) {
	ids := []string{id}
	frontier := []string{id}
	seen := map[string]struct{}{id: {}}
	for len(frontier) > 0 {
		var children []string
		if err := tx.Model(&model.FolderRecord{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, c := range children {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			ids = append(ids, c)
			frontier = append(frontier, c)
		}
	}
	return ids, nil
}
