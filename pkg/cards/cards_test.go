package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/store"
)

func TestTaskList_Empty(t *testing.T) {
	c := TaskList(nil)
	assert.Contains(t, PlainText(c), "No tasks yet")
	assert.Empty(t, c.Rows)
}

func TestTaskList_Rows(t *testing.T) {
	c := TaskList([]store.Task{
		{ID: "t1", Title: "Buy milk"},
		{ID: "t2", Title: "Done", Completed: true},
	})
	require.Len(t, c.Rows, 2)
	assert.Contains(t, c.Rows[0].Text, "Buy milk")
	assert.Equal(t, "false", c.Rows[0].Actions[0].Data["completed"])
	assert.Equal(t, "Undo", c.Rows[1].Actions[0].Title)
	assert.Contains(t, c.Rows[1].Text, Strikethrough("Done"))
	assert.True(t, c.Rows[0].Actions[2].Danger)
}

func TestAdaptive_MeetingForm(t *testing.T) {
	doc := Adaptive(MeetingForm("Sprint Review", "2025-11-01"))

	assert.Equal(t, "AdaptiveCard", doc["type"])
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var parsed struct {
		Body []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"body"`
		Actions []struct {
			Data map[string]string `json:"data"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(raw, &parsed))

	ids := map[string]string{}
	for _, b := range parsed.Body {
		if b.ID != "" {
			ids[b.ID] = b.Type
		}
	}
	assert.Equal(t, "Input.Date", ids["meeting_date"])
	assert.Equal(t, "Input.ChoiceSet", ids["meeting_time"])
	assert.Equal(t, "Input.ChoiceSet", ids["timezone"])
	assert.Equal(t, "Input.Text", ids["participants"])

	require.Len(t, parsed.Actions, 2)
	assert.Equal(t, "schedule_meeting", parsed.Actions[0].Data["action"])
	assert.Equal(t, "Sprint Review", parsed.Actions[0].Data["meeting_title"])
}

func TestHalfHours(t *testing.T) {
	hh := halfHours()
	require.Len(t, hh, 48)
	assert.Equal(t, Choice{Title: "12:00 AM", Value: "00:00"}, hh[0])
	assert.Equal(t, Choice{Title: "01:30 PM", Value: "13:30"}, hh[27])
}

func TestModifyTaskPrefill(t *testing.T) {
	c := ModifyTask(store.Task{ID: "t1", Title: "Old"})
	assert.True(t, c.HasInputs())
	assert.Equal(t, "Old", c.Body[2].Input.Value)
	assert.Equal(t, "t1", c.Actions[0].Data["task_id"])
}
