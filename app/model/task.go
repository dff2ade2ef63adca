package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailed  TaskStatus = "FAILED"
)

// ParseTaskStatus 解析状态字符串，兼容旧版前端写入的 "FAILD"
func ParseTaskStatus(s string) TaskStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RUNNING":
		return TaskStatusRunning
	case "SUCCESS":
		return TaskStatusSuccess
	case "FAILED", "FAILD":
		return TaskStatusFailed
	default:
		return TaskStatusPending
	}
}

func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseTaskStatus(raw)
	return nil
}

// AudioMeta 音视频元数据
type AudioMeta struct {
	Title    string          `json:"title"`
	CoverURL string          `json:"cover_url"`
	Duration float64         `json:"duration"`
	FilePath string          `json:"file_path"`
	Platform string          `json:"platform"`
	VideoID  string          `json:"video_id"`
	RawInfo  json.RawMessage `json:"raw_info,omitempty"`
}

// Segment 带时间戳的转写片段
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript 转写结果
type Transcript struct {
	FullText string          `json:"full_text"`
	Language string          `json:"language"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Segments []Segment       `json:"segments"`
}

// FormData 生成任务的参数，重试时原样提交
type FormData struct {
	VideoURL   string `json:"video_url"`
	Link       bool   `json:"link"`
	Screenshot bool   `json:"screenshot"`
	Platform   string `json:"platform"`
	Quality    string `json:"quality"`
	ModelName  string `json:"model_name"`
	ProviderID string `json:"provider_id"`
	Style      string `json:"style,omitempty"`

	// Extra 未声明的参数，解析时保留，序列化时原样写回
	Extra map[string]json.RawMessage `json:"-"`
}

type formDataFields FormData

var formDataKeys = []string{
	"video_url", "link", "screenshot", "platform",
	"quality", "model_name", "provider_id", "style",
}

func (f FormData) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(formDataFields(f))
	if err != nil || len(f.Extra) == 0 {
		return raw, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func (f *FormData) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var fields formDataFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for _, k := range formDataKeys {
		delete(m, k)
	}

	fields.Extra = nil
	if len(m) > 0 {
		fields.Extra = m
	}
	*f = FormData(fields)
	return nil
}

// Clone 深拷贝 Extra
func (f FormData) Clone() FormData {
	c := f
	if f.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = cloneRaw(v)
		}
	}
	return c
}

func (f FormData) Equal(o FormData) bool {
	if f.VideoURL != o.VideoURL || f.Link != o.Link || f.Screenshot != o.Screenshot ||
		f.Platform != o.Platform || f.Quality != o.Quality || f.ModelName != o.ModelName ||
		f.ProviderID != o.ProviderID || f.Style != o.Style || len(f.Extra) != len(o.Extra) {
		return false
	}
	for k, v := range f.Extra {
		w, ok := o.Extra[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}

// Task 一次转写/笔记生成任务及其结果
type Task struct {
	ID         string     `json:"id"`
	Status     TaskStatus `json:"status"`
	Platform   string     `json:"platform"`
	CreatedAt  time.Time  `json:"createdAt"`
	FolderID   string     `json:"folderId,omitempty"` // 为空表示根目录
	AudioMeta  AudioMeta  `json:"audioMeta"`
	Transcript Transcript `json:"transcript"`
	Markdown   Markdown   `json:"markdown"`
	FormData   FormData   `json:"formData"`
}

// NewPendingTask 创建一个刚提交的任务
func NewPendingTask(id, platform string, form FormData, now time.Time) Task {
	return Task{
		ID:         id,
		Status:     TaskStatusPending,
		Platform:   platform,
		CreatedAt:  now,
		Transcript: Transcript{Segments: []Segment{}},
		Markdown:   LegacyMarkdown(""),
		FormData:   form.Clone(),
	}
}

// Title 任务标题，用于搜索
func (t Task) Title() string {
	return t.AudioMeta.Title
}

// Clone 深拷贝，快照和对外返回都基于它
func (t Task) Clone() Task {
	c := t
	c.AudioMeta.RawInfo = cloneRaw(t.AudioMeta.RawInfo)
	c.Transcript.Raw = cloneRaw(t.Transcript.Raw)
	if t.Transcript.Segments != nil {
		c.Transcript.Segments = append([]Segment(nil), t.Transcript.Segments...)
	}
	c.Markdown = t.Markdown.clone()
	c.FormData = t.FormData.Clone()
	return c
}

// Equal 判断两个任务内容是否完全一致
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.Status != o.Status || t.Platform != o.Platform ||
		!t.CreatedAt.Equal(o.CreatedAt) || t.FolderID != o.FolderID || !t.FormData.Equal(o.FormData) {
		return false
	}
	a, b := t.AudioMeta, o.AudioMeta
	if a.Title != b.Title || a.CoverURL != b.CoverURL || a.Duration != b.Duration ||
		a.FilePath != b.FilePath || a.Platform != b.Platform || a.VideoID != b.VideoID ||
		!bytes.Equal(a.RawInfo, b.RawInfo) {
		return false
	}
	if t.Transcript.FullText != o.Transcript.FullText || t.Transcript.Language != o.Transcript.Language ||
		!bytes.Equal(t.Transcript.Raw, o.Transcript.Raw) || len(t.Transcript.Segments) != len(o.Transcript.Segments) {
		return false
	}
	for i := range t.Transcript.Segments {
		if t.Transcript.Segments[i] != o.Transcript.Segments[i] {
			return false
		}
	}
	return t.Markdown.Equal(o.Markdown)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// TaskPatch 任务的局部更新，nil 字段表示不修改
type TaskPatch struct {
	Status     *TaskStatus
	Platform   *string
	AudioMeta  *AudioMeta
	Transcript *Transcript
	// Markdown 为旧版字符串时会被封装成新版本插入最前；为版本序列时整体替换
	Markdown *Markdown
	FormData *FormData
}

// ContentPatch 以字符串形式给出的新笔记内容
func ContentPatch(status TaskStatus, markdown string) TaskPatch {
	md := LegacyMarkdown(markdown)
	return TaskPatch{Status: &status, Markdown: &md}
}

// ApplyScalars 合并除 Markdown 以外的字段
func (p TaskPatch) ApplyScalars(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Platform != nil {
		t.Platform = *p.Platform
	}
	if p.AudioMeta != nil {
		t.AudioMeta = *p.AudioMeta
		t.AudioMeta.RawInfo = cloneRaw(p.AudioMeta.RawInfo)
	}
	if p.Transcript != nil {
		t.Transcript = *p.Transcript
		t.Transcript.Raw = cloneRaw(p.Transcript.Raw)
		t.Transcript.Segments = append([]Segment(nil), p.Transcript.Segments...)
	}
	if p.FormData != nil {
		t.FormData = p.FormData.Clone()
	}
}
