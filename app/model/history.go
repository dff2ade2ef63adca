package model

import (
	"encoding/json"
	"time"
)

// HistoryRecord 远端历史记录，既是接口的数据格式也是参考存储的表结构
type HistoryRecord struct {
	ID       uint    `gorm:"primarykey" json:"id"`
	TaskID   string  `gorm:"size:100;not null;uniqueIndex;comment:任务ID" json:"task_id"`
	Status   string  `gorm:"size:20;not null;comment:状态(PENDING,RUNNING,SUCCESS,FAILED)" json:"status"`
	Platform string  `gorm:"size:50;not null;comment:平台" json:"platform"`
	FolderID *string `gorm:"size:100;index;comment:所属文件夹ID，NULL表示根目录" json:"folder_id"`

	// 音频元数据
	Title    string          `gorm:"size:500" json:"title,omitempty"`
	CoverURL string          `gorm:"size:1000" json:"cover_url,omitempty"`
	Duration float64         `json:"duration,omitempty"`
	FilePath string          `gorm:"size:1000" json:"file_path,omitempty"`
	VideoID  string          `gorm:"size:200;index" json:"video_id,omitempty"`
	RawInfo  json.RawMessage `gorm:"serializer:json;type:text" json:"raw_info,omitempty"`

	// 转写数据
	TranscriptFullText string          `gorm:"type:text" json:"transcript_full_text,omitempty"`
	TranscriptLanguage string          `gorm:"size:20" json:"transcript_language,omitempty"`
	TranscriptRaw      json.RawMessage `gorm:"serializer:json;type:text" json:"transcript_raw,omitempty"`
	TranscriptSegments []Segment       `gorm:"serializer:json;type:text" json:"transcript_segments,omitempty"`

	// 生成的笔记内容
	MarkdownContent  string            `gorm:"type:text" json:"markdown_content,omitempty"`
	MarkdownVersions []MarkdownVersion `gorm:"serializer:json;type:text" json:"markdown_versions,omitempty"`

	FormData *FormData `gorm:"serializer:json;type:text" json:"form_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (HistoryRecord) TableName() string {
	return "history"
}

// TaskFromRecord 远端记录转为任务
func TaskFromRecord(r HistoryRecord) Task {
	var md Markdown
	if len(r.MarkdownVersions) > 0 {
		md = SortedMarkdown(r.MarkdownVersions)
	} else {
		md = LegacyMarkdown(r.MarkdownContent)
	}

	form := FormData{Platform: r.Platform, Quality: "medium"}
	if r.FormData != nil {
		form = *r.FormData
	}

	segments := append([]Segment{}, r.TranscriptSegments...)

	t := Task{
		ID:        r.TaskID,
		Status:    ParseTaskStatus(r.Status),
		Platform:  r.Platform,
		CreatedAt: r.CreatedAt,
		AudioMeta: AudioMeta{
			Title:    r.Title,
			CoverURL: r.CoverURL,
			Duration: r.Duration,
			FilePath: r.FilePath,
			Platform: r.Platform,
			VideoID:  r.VideoID,
			RawInfo:  cloneRaw(r.RawInfo),
		},
		Transcript: Transcript{
			FullText: r.TranscriptFullText,
			Language: r.TranscriptLanguage,
			Raw:      cloneRaw(r.TranscriptRaw),
			Segments: segments,
		},
		Markdown: md,
		FormData: form,
	}
	if r.FolderID != nil {
		t.FolderID = *r.FolderID
	}
	return t
}

// RecordFromTask 任务转为远端记录，版本序列时 markdown_content 取最新版本
func RecordFromTask(t Task) HistoryRecord {
	form := t.FormData.Clone()
	r := HistoryRecord{
		TaskID:             t.ID,
		Status:             string(t.Status),
		Platform:           t.Platform,
		Title:              t.AudioMeta.Title,
		CoverURL:           t.AudioMeta.CoverURL,
		Duration:           t.AudioMeta.Duration,
		FilePath:           t.AudioMeta.FilePath,
		VideoID:            t.AudioMeta.VideoID,
		RawInfo:            cloneRaw(t.AudioMeta.RawInfo),
		TranscriptFullText: t.Transcript.FullText,
		TranscriptLanguage: t.Transcript.Language,
		TranscriptRaw:      cloneRaw(t.Transcript.Raw),
		TranscriptSegments: append([]Segment(nil), t.Transcript.Segments...),
		MarkdownContent:    t.Markdown.Content(),
		MarkdownVersions:   t.Markdown.Versions(),
		FormData:           &form,
		CreatedAt:          t.CreatedAt,
	}
	if len(r.MarkdownVersions) == 0 {
		r.MarkdownVersions = nil
	}
	if t.FolderID != "" {
		folderID := t.FolderID
		r.FolderID = &folderID
	}
	return r
}

// GenerateRequest 提交给生成后端的参数，task_id 与表单参数在同一层
type GenerateRequest struct {
	FormData
	TaskID string `json:"task_id,omitempty"`
}

func (r GenerateRequest) MarshalJSON() ([]byte, error) {
	form := r.FormData.Clone()
	delete(form.Extra, "task_id")
	if r.TaskID != "" {
		id, err := json.Marshal(r.TaskID)
		if err != nil {
			return nil, err
		}
		if form.Extra == nil {
			form.Extra = make(map[string]json.RawMessage, 1)
		}
		form.Extra["task_id"] = id
	}
	return json.Marshal(form)
}

func (r *GenerateRequest) UnmarshalJSON(b []byte) error {
	var form FormData
	if err := json.Unmarshal(b, &form); err != nil {
		return err
	}
	var id struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	delete(form.Extra, "task_id")
	if len(form.Extra) == 0 {
		form.Extra = nil
	}
	r.FormData = form
	r.TaskID = id.TaskID
	return nil
}

// GenerateResponse 生成后端返回的任务句柄
type GenerateResponse struct {
	TaskID string `json:"task_id"`
}

// DeleteTaskRequest 取消/删除后端任务
type DeleteTaskRequest struct {
	VideoID  string `json:"video_id"`
	Platform string `json:"platform"`
}
