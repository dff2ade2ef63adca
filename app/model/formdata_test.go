package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formWithExtras = `{
	"video_url": "https://example.com/v",
	"link": true,
	"screenshot": false,
	"platform": "bilibili",
	"quality": "fast",
	"model_name": "gpt-4o",
	"provider_id": "openai",
	"format": ["toc", "summary"],
	"extras": "重点记录公式",
	"video_understanding": true,
	"video_interval": 6
}`

func TestFormData_KeepsUndeclaredKeys(t *testing.T) {
	var form FormData
	require.NoError(t, json.Unmarshal([]byte(formWithExtras), &form))

	assert.Equal(t, "https://example.com/v", form.VideoURL)
	assert.True(t, form.Link)
	assert.Equal(t, "gpt-4o", form.ModelName)
	require.Len(t, form.Extra, 4)
	assert.JSONEq(t, `["toc","summary"]`, string(form.Extra["format"]))
	assert.JSONEq(t, `6`, string(form.Extra["video_interval"]))
	assert.NotContains(t, form.Extra, "platform")

	out, err := json.Marshal(form)
	require.NoError(t, err)
	assert.JSONEq(t, formWithExtras, string(out))
}

func TestFormData_WithoutExtrasKeepsNilMap(t *testing.T) {
	var form FormData
	require.NoError(t, json.Unmarshal([]byte(`{"video_url":"u","platform":"youtube"}`), &form))
	assert.Nil(t, form.Extra)
	assert.Equal(t, FormData{VideoURL: "u", Platform: "youtube"}, form)
}

func TestFormData_CloneAndEqual(t *testing.T) {
	var form FormData
	require.NoError(t, json.Unmarshal([]byte(formWithExtras), &form))

	c := form.Clone()
	assert.True(t, form.Equal(c))

	c.Extra["video_interval"] = json.RawMessage(`10`)
	assert.False(t, form.Equal(c))
	assert.JSONEq(t, `6`, string(form.Extra["video_interval"]), "clone must not share the map")

	task := Task{ID: "t1", FormData: form}
	copied := task.Clone()
	delete(copied.FormData.Extra, "format")
	assert.Contains(t, task.FormData.Extra, "format")
	assert.False(t, task.Equal(copied))
}

func TestFormData_SurvivesHistoryRecord(t *testing.T) {
	var form FormData
	require.NoError(t, json.Unmarshal([]byte(formWithExtras), &form))

	raw, err := json.Marshal(RecordFromTask(Task{ID: "t1", Platform: "bilibili", FormData: form}))
	require.NoError(t, err)

	var record HistoryRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	got := TaskFromRecord(record)
	assert.True(t, form.Equal(got.FormData))
}

func TestGenerateRequest_TaskIDBesideFormFields(t *testing.T) {
	var form FormData
	require.NoError(t, json.Unmarshal([]byte(formWithExtras), &form))

	raw, err := json.Marshal(GenerateRequest{FormData: form, TaskID: "job-1"})
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.JSONEq(t, `"job-1"`, string(flat["task_id"]))
	assert.JSONEq(t, `"https://example.com/v"`, string(flat["video_url"]))
	assert.JSONEq(t, `6`, string(flat["video_interval"]))

	var req GenerateRequest
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "job-1", req.TaskID)
	assert.NotContains(t, req.FormData.Extra, "task_id")
	assert.True(t, form.Equal(req.FormData))

	raw, err = json.Marshal(GenerateRequest{FormData: FormData{Platform: "youtube"}})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "task_id")
}
