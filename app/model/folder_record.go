package model

import "time"

// FolderRecord 远端文件夹记录，既是接口的数据格式也是参考存储的表结构
type FolderRecord struct {
	ID         string    `gorm:"primaryKey;size:100" json:"id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	ParentID   *string   `gorm:"size:100;index;comment:父文件夹ID，NULL表示根目录" json:"parent_id"`
	IsExpanded bool      `json:"is_expanded"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (FolderRecord) TableName() string {
	return "folders"
}

// FolderUpdate 文件夹局部更新。ParentID 指向空串表示移到根目录。
type FolderUpdate struct {
	Name       *string `json:"name,omitempty"`
	ParentID   *string `json:"parent_id,omitempty"`
	IsExpanded *bool   `json:"is_expanded,omitempty"`
}

// MoveHistoryRequest 移动历史记录到文件夹，FolderID 为 nil 表示根目录
type MoveHistoryRequest struct {
	TaskID   string  `json:"task_id"`
	FolderID *string `json:"folder_id"`
}

// FolderFromRecord 远端记录转为文件夹
func FolderFromRecord(r FolderRecord) Folder {
	f := Folder{
		ID:         r.ID,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		IsExpanded: r.IsExpanded,
	}
	if r.ParentID != nil {
		f.ParentID = *r.ParentID
	}
	return f
}

// RecordFromFolder 文件夹转为创建请求
func RecordFromFolder(f Folder) FolderRecord {
	r := FolderRecord{
		ID:         f.ID,
		Name:       f.Name,
		IsExpanded: f.IsExpanded,
		CreatedAt:  f.CreatedAt,
	}
	if f.ParentID != "" {
		parentID := f.ParentID
		r.ParentID = &parentID
	}
	return r
}
