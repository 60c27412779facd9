// Package commands parses chat text and card submissions into commands.
package commands

import (
	"errors"

	"github.com/tinyland-inc/botper/pkg/session"
)

// Command is one of the concrete command types below.
type Command interface {
	Name() string
}

type Greet struct{}

type CreateTask struct{ Title string }

type ListTasks struct{}

type DeleteTask struct{ ID string }

type ModifyTaskPrompt struct{ ID string }

type UpdateTask struct {
	ID       string
	NewTitle string
}

type ToggleTaskComplete struct {
	ID            string
	CurrentStatus bool
}

type ScheduleMeeting struct{ Title string }

type ListMeetings struct{}

// ListMyMeetings lists the actor's meetings at the meeting provider.
type ListMyMeetings struct{}

// InstantMeeting creates a provider meeting starting now.
type InstantMeeting struct{ Title string }

// CancelSession ends the actor's pending session of the given kind in the
// current room.
type CancelSession struct{ Kind session.Kind }

type SubmitMeetingForm struct{ Form MeetingForm }

type SaveMeetingLink struct {
	Title string
	Link  string
}

// MeetingForm holds the raw meeting form fields.
type MeetingForm struct {
	Title        string
	Date         string
	Time         string
	Timezone     string
	Duration     string
	Participants string
}

func (Greet) Name() string              { return "greet" }
func (CreateTask) Name() string         { return "create_task" }
func (ListTasks) Name() string          { return "list_tasks" }
func (DeleteTask) Name() string         { return "delete_task" }
func (ModifyTaskPrompt) Name() string   { return "modify_task" }
func (UpdateTask) Name() string         { return "update_task" }
func (ToggleTaskComplete) Name() string { return "toggle_task" }
func (ScheduleMeeting) Name() string    { return "schedule_meeting" }
func (ListMeetings) Name() string       { return "list_meetings" }
func (ListMyMeetings) Name() string     { return "list_my_meetings" }
func (InstantMeeting) Name() string     { return "instant_meeting" }
func (CancelSession) Name() string      { return "cancel_session" }
func (SubmitMeetingForm) Name() string  { return "submit_meeting_form" }
func (SaveMeetingLink) Name() string    { return "save_meeting_link" }

// ValidationError is a problem the user can fix by resending the command.
// Its message is shown to the user as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(msg string) error { return &ValidationError{Msg: msg} }

// AsValidation returns the ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
