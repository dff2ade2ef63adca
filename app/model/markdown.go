package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// MarkdownVersion 一次生成/重试得到的笔记快照，创建后不再修改
type MarkdownVersion struct {
	VerID     string    `json:"ver_id"`
	Content   string    `json:"content"`
	Style     string    `json:"style"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Markdown 笔记内容：旧版单字符串，或按新到旧排列的版本序列
type Markdown struct {
	versioned bool
	legacy    string
	versions  []MarkdownVersion
}

// LegacyMarkdown 旧版单字符串笔记
func LegacyMarkdown(content string) Markdown {
	return Markdown{legacy: content}
}

// VersionedMarkdown 版本序列，调用方保证新版本在前
func VersionedMarkdown(versions ...MarkdownVersion) Markdown {
	return Markdown{versioned: true, versions: append([]MarkdownVersion{}, versions...)}
}

// SortedMarkdown 按创建时间从新到旧整理后的版本序列，时间相同保持原顺序
func SortedMarkdown(versions []MarkdownVersion) Markdown {
	md := VersionedMarkdown(versions...)
	sort.SliceStable(md.versions, func(i, j int) bool {
		return md.versions[i].CreatedAt.After(md.versions[j].CreatedAt)
	})
	return md
}

func (m Markdown) IsVersioned() bool {
	return m.versioned
}

// Legacy 旧版字符串内容，已是版本序列时返回空串
func (m Markdown) Legacy() string {
	return m.legacy
}

// Versions 返回版本序列的副本
func (m Markdown) Versions() []MarkdownVersion {
	if !m.versioned {
		return nil
	}
	return append([]MarkdownVersion{}, m.versions...)
}

// Content 当前展示的内容：最新版本或旧版字符串
func (m Markdown) Content() string {
	if !m.versioned {
		return m.legacy
	}
	if len(m.versions) == 0 {
		return ""
	}
	return m.versions[0].Content
}

// Normalize 转为版本序列；非空的旧版字符串由 seed 包装成唯一的版本
func (m Markdown) Normalize(seed func(content string) MarkdownVersion) Markdown {
	if m.versioned {
		return m.clone()
	}
	if m.legacy == "" {
		return VersionedMarkdown()
	}
	return VersionedMarkdown(seed(m.legacy))
}

// Prepend 在最前插入新版本，旧版字符串先经 Normalize 处理
func (m Markdown) Prepend(v MarkdownVersion, seed func(content string) MarkdownVersion) Markdown {
	base := m.Normalize(seed)
	out := make([]MarkdownVersion, 0, len(base.versions)+1)
	out = append(out, v)
	out = append(out, base.versions...)
	return Markdown{versioned: true, versions: out}
}

func (m Markdown) Equal(o Markdown) bool {
	if m.versioned != o.versioned || m.legacy != o.legacy || len(m.versions) != len(o.versions) {
		return false
	}
	for i := range m.versions {
		a, b := m.versions[i], o.versions[i]
		if a.VerID != b.VerID || a.Content != b.Content || a.Style != b.Style ||
			a.ModelName != b.ModelName || !a.CreatedAt.Equal(b.CreatedAt) {
			return false
		}
	}
	return true
}

func (m Markdown) clone() Markdown {
	if m.versions != nil {
		m.versions = append([]MarkdownVersion{}, m.versions...)
	}
	return m
}

// MarshalJSON 旧版输出字符串，版本序列输出数组
func (m Markdown) MarshalJSON() ([]byte, error) {
	if !m.versioned {
		return json.Marshal(m.legacy)
	}
	if m.versions == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.versions)
}

func (m *Markdown) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*m = LegacyMarkdown("")
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*m = LegacyMarkdown(s)
	case trimmed[0] == '[':
		var versions []MarkdownVersion
		if err := json.Unmarshal(trimmed, &versions); err != nil {
			return err
		}
		*m = VersionedMarkdown(versions...)
	default:
		return fmt.Errorf("markdown 字段格式错误: %s", trimmed)
	}
	return nil
}
