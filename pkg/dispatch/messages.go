package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/store"
)

var errNoProvider = errors.New("meeting scheduling is not configured")

const greeting = `Hello! This is Botper! I will help you set up your tasks and schedule your Webex meetings!

COMMANDS:

Tasks:
- task <description>
- list
- delete <task id>

Meetings:
- schedule meeting <title> (interactive form)
- instant meeting <title> (starts now)
- meetings (saved meetings)
- my meetings (your Webex meetings)`

func confirmation(m store.Meeting) string {
	var b strings.Builder
	b.WriteString(okPrefix + "Meeting created!\n\n")
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimPrefix(m.Title, "Webex Meeting: "))
	if m.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", m.Date)
	}
	if m.Time != "" {
		fmt.Fprintf(&b, "Time: %s (%s)\n", m.Time, m.Timezone)
	}
	if m.URL != "" {
		fmt.Fprintf(&b, "Join: %s\n", m.URL)
	}
	if m.Password != "" {
		fmt.Fprintf(&b, "Password: %s\n", m.Password)
	}
	if len(m.Participants) > 0 {
		fmt.Fprintf(&b, "Invited: %s\n", strings.Join(m.Participants, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStoredMeetings(list []store.Meeting) string {
	if len(list) == 0 {
		return "No meetings saved yet. Use 'schedule meeting <title>' to create one!"
	}
	var b strings.Builder
	b.WriteString("Saved meetings:\n")
	for i, m := range list {
		fmt.Fprintf(&b, "\n%d. %s [%s]", i+1, m.Title, m.Status)
		if m.Date != "" || m.Time != "" {
			fmt.Fprintf(&b, "\n   %s %s %s", m.Date, m.Time, m.Timezone)
		}
		if m.URL != "" {
			fmt.Fprintf(&b, "\n   %s", m.URL)
		}
	}
	return b.String()
}

func formatProviderMeetings(email string, list []meetings.Meeting) string {
	if len(list) == 0 {
		return fmt.Sprintf("No meetings found for %s\n\nUse 'schedule meeting <title>' to create one!", email)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your Webex meetings (%s):\n", email)
	for i, m := range list {
		title := m.Title
		if title == "" {
			title = "Untitled Meeting"
		}
		when := "No time set"
		if !m.Start.IsZero() {
			when = m.Start.UTC().Format("01/02/2006 at 03:04 PM UTC")
		}
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n   %s\n   ID: %s\n", i+1, title, when, m.WebLink, m.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// displayDate turns YYYY-MM-DD into MM/DD/YYYY and leaves anything else alone.
func displayDate(date string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return t.Format("01/02/2006")
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
