package commands

import (
	"strconv"
	"strings"

	"github.com/tinyland-inc/botper/pkg/session"
)

// Card action names carried in the "action" input.
const (
	ActionDelete          = "delete"
	ActionModify          = "modify"
	ActionUpdate          = "update"
	ActionToggle          = "toggle"
	ActionCancel          = "cancel"
	ActionScheduleMeeting = "schedule_meeting"
	ActionCancelMeeting   = "cancel_meeting"
	ActionSaveMeetingLink = "save_meeting_link"
	ActionList            = "list"
	ActionListMeetings    = "list_meetings"
)

// ParseCard interprets a card submission. The "action" field selects the
// command; unknown actions return (nil, nil).
func ParseCard(inputs map[string]string) (Command, error) {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := inputs[k]; ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	switch get("action") {
	case ActionDelete:
		return DeleteTask{ID: get("task_id")}, nil

	case ActionModify:
		return ModifyTaskPrompt{ID: get("task_id")}, nil

	case ActionUpdate:
		title := get("new_title")
		if title == "" {
			return nil, Invalid("Task title cannot be empty.")
		}
		return UpdateTask{ID: get("task_id"), NewTitle: title}, nil

	case ActionToggle:
		done, _ := strconv.ParseBool(get("completed"))
		return ToggleTaskComplete{ID: get("task_id"), CurrentStatus: done}, nil

	case ActionCancel:
		return CancelSession{Kind: session.KindTaskModify}, nil

	case ActionCancelMeeting:
		return CancelSession{Kind: session.KindMeetingSchedule}, nil

	case ActionScheduleMeeting:
		return SubmitMeetingForm{Form: MeetingForm{
			Title:        get("meeting_title", "title"),
			Date:         get("meeting_date", "date"),
			Time:         get("meeting_time", "time"),
			Timezone:     get("timezone"),
			Duration:     get("duration"),
			Participants: get("participants"),
		}}, nil

	case ActionSaveMeetingLink:
		link := get("meeting_link", "link")
		if !strings.Contains(link, "webex.com") && !strings.Contains(link, "meet") {
			return nil, Invalid("Please provide a valid meeting link (e.g. https://yourcompany.webex.com/meet/...).")
		}
		return SaveMeetingLink{Title: get("meeting_title", "title"), Link: link}, nil

	case ActionList:
		return ListTasks{}, nil

	case ActionListMeetings:
		return ListMeetings{}, nil
	}
	return nil, nil
}
