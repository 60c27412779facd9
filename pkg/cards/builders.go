package cards

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyland-inc/botper/pkg/store"
)

// Strikethrough marks completed task titles.
func Strikethrough(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		b.WriteRune('\u0336')
	}
	return b.String()
}

// TaskList shows every task with toggle, modify and delete buttons.
func TaskList(tasks []store.Task) *Card {
	c := &Card{Title: "Your Tasks"}
	if len(tasks) == 0 {
		c.Body = append(c.Body, TextBlock("No tasks yet! Use 'task <description>' to create one."))
		return c
	}

	for _, t := range tasks {
		title := t.Title
		if t.Completed {
			title = Strikethrough(title)
		}
		if t.MeetingLink != "" {
			title += "\n" + t.MeetingLink
		}
		toggle := "Done"
		if t.Completed {
			toggle = "Undo"
		}
		c.Rows = append(c.Rows, Row{
			Text: fmt.Sprintf("%s (id: %s)", title, t.ID),
			Actions: []Action{
				{Title: toggle, Data: map[string]string{
					"action":    "toggle",
					"task_id":   t.ID,
					"completed": strconv.FormatBool(t.Completed),
				}},
				{Title: "Modify", Data: map[string]string{"action": "modify", "task_id": t.ID}},
				{Title: "Delete", Danger: true, Data: map[string]string{"action": "delete", "task_id": t.ID}},
			},
		})
	}
	return c
}

// ModifyTask is the edit form for one task.
func ModifyTask(t store.Task) *Card {
	return &Card{
		Title: "Modify Task",
		Body: []Element{
			Heading("Current title:"),
			TextBlock(t.Title),
			{Input: &Input{
				ID:          "new_title",
				Kind:        InputText,
				Label:       "New title",
				Value:       t.Title,
				Placeholder: "Enter new task title...",
				Required:    true,
			}},
		},
		Actions: []Action{
			{Title: "Save Changes", Data: map[string]string{"action": "update", "task_id": t.ID}},
			{Title: "Cancel", Data: map[string]string{"action": "cancel"}},
		},
	}
}

// MeetingForm asks for the details of a meeting titled title. date is the
// prefilled YYYY-MM-DD value.
func MeetingForm(title, date string) *Card {
	return &Card{
		Title: "Schedule Webex Meeting",
		Body: []Element{
			TextBlock("Meeting: " + title),
			{Input: &Input{ID: "meeting_date", Kind: InputDate, Label: "Date", Value: date, Required: true}},
			{Input: &Input{ID: "meeting_time", Kind: InputChoice, Label: "Time", Value: "09:00", Required: true, Choices: halfHours()}},
			{Input: &Input{ID: "timezone", Kind: InputChoice, Label: "Timezone", Value: "UTC+00:00", Choices: offsets()}},
			{Input: &Input{ID: "duration", Kind: InputText, Label: "Duration (minutes)", Placeholder: "60"}},
			{Input: &Input{
				ID:          "participants",
				Kind:        InputText,
				Label:       "Participants (email addresses, comma-separated)",
				Placeholder: "user1@company.com, user2@company.com",
			}},
		},
		Actions: []Action{
			{Title: "Schedule Meeting", Data: map[string]string{"action": "schedule_meeting", "meeting_title": title}},
			{Title: "Cancel", Data: map[string]string{"action": "cancel_meeting"}},
		},
	}
}

// MeetingLinkForm asks for a link to a meeting the user created themselves.
func MeetingLinkForm(title string) *Card {
	return &Card{
		Title: "Save Meeting Link",
		Body: []Element{
			TextBlock("Create the meeting in Webex, then paste its link here."),
			{Input: &Input{ID: "meeting_link", Kind: InputText, Label: "Meeting link", Placeholder: "https://yourcompany.webex.com/meet/...", Required: true}},
		},
		Actions: []Action{
			{Title: "Save", Data: map[string]string{"action": "save_meeting_link", "meeting_title": title}},
			{Title: "Cancel", Data: map[string]string{"action": "cancel_meeting"}},
		},
	}
}

func halfHours() []Choice {
	out := make([]Choice, 0, 48)
	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 30} {
			h12 := h % 12
			if h12 == 0 {
				h12 = 12
			}
			ampm := "AM"
			if h >= 12 {
				ampm = "PM"
			}
			out = append(out, Choice{
				Title: fmt.Sprintf("%02d:%02d %s", h12, m, ampm),
				Value: fmt.Sprintf("%02d:%02d", h, m),
			})
		}
	}
	return out
}

func offsets() []Choice {
	values := []string{
		"-12:00", "-11:00", "-10:00", "-09:00", "-08:00", "-07:00", "-06:00", "-05:00", "-04:00",
		"-03:30", "-03:00", "-02:00", "-01:00", "+00:00", "+01:00", "+02:00", "+03:00", "+03:30",
		"+04:00", "+04:30", "+05:00", "+05:30", "+05:45", "+06:00", "+07:00", "+08:00", "+09:00",
		"+09:30", "+10:00", "+11:00", "+12:00", "+13:00", "+14:00",
	}
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Title: "GMT" + v, Value: "UTC" + v})
	}
	return out
}
