// Package reconcile links meetings reported by the meeting provider back to
// the chat request that asked for them.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

// Notifier sends a text message to a room.
type Notifier interface {
	SendText(ctx context.Context, roomID, text string) error
}

// MeetingGetter fills in callbacks that arrive without a title.
type MeetingGetter interface {
	Get(ctx context.Context, id string) (meetings.Meeting, error)
}

type Outcome struct {
	Matched   bool
	RoomID    string
	TaskID    string
	MeetingID string
	// Err is the first persistence error, if any. A matched outcome with Err
	// set may have written the task but not the meeting.
	Err error
}

type Engine struct {
	platform string
	sessions *session.Store
	tasks    store.TaskStore
	meetings store.MeetingStore
	notify   Notifier
	getter   MeetingGetter
}

func NewEngine(platform string, sessions *session.Store, st store.Store, notify Notifier, getter MeetingGetter) *Engine {
	return &Engine{
		platform: platform,
		sessions: sessions,
		tasks:    st,
		meetings: st,
		notify:   notify,
		getter:   getter,
	}
}

// Reconcile matches a provider meeting against pending identity-scoped
// scheduling sessions. The first live session (in insertion order) whose
// requester email equals the meeting host and whose title matches wins; it is
// removed together with its paired form session, so one callback creates at
// most one task. Unmatched meetings are logged and dropped.
func (e *Engine) Reconcile(ctx context.Context, m events.MeetingDescriptor) Outcome {
	if m.Title == "" && m.ID != "" && e.getter != nil {
		full, err := e.getter.Get(ctx, m.ID)
		if err != nil {
			logger.WarnCF("reconcile", "Meeting lookup failed", map[string]any{
				"platform":   e.platform,
				"meeting_id": m.ID,
				"error":      err.Error(),
			})
		} else {
			m = fillFrom(m, full)
		}
	}

	sess, ok := e.sessions.TakeFirst(func(s session.Session) bool {
		return s.Kind == session.KindMeetingSchedule &&
			s.Key.Scope == session.ScopeIdentity &&
			s.ActorEmail != "" &&
			strings.EqualFold(strings.TrimSpace(s.ActorEmail), strings.TrimSpace(m.HostEmail)) &&
			TitleMatch(s.RequestedTitle, m.Title)
	})
	if !ok {
		logger.InfoCF("reconcile", "No pending request for meeting", map[string]any{
			"platform":   e.platform,
			"meeting_id": m.ID,
			"title":      m.Title,
			"host":       m.HostEmail,
		})
		return Outcome{}
	}
	if !sess.Pair.IsZero() {
		e.sessions.Remove(sess.Pair)
	}

	out := Outcome{Matched: true, RoomID: sess.RoomID}
	title := sess.RequestedTitle

	task := store.Task{
		Title:       "Webex Meeting: " + title,
		Type:        store.TaskTypeMeeting,
		MeetingLink: m.WebLink,
	}
	if !m.Start.IsZero() {
		task.StartTime = m.Start.UTC().Format(time.RFC3339)
		task.Date = m.Start.UTC().Format("01/02/2006")
		task.Time = m.Start.UTC().Format("15:04")
	}
	out.TaskID, out.Err = e.tasks.CreateTask(ctx, task)

	// Task and meeting are independent writes; a failed meeting insert does
	// not roll back the task.
	if out.Err == nil {
		rec := store.Meeting{
			Title:      task.Title,
			Date:       task.Date,
			Time:       task.Time,
			Timezone:   "UTC",
			HostEmail:  m.HostEmail,
			Status:     store.MeetingScheduled,
			Platform:   e.platform,
			ProviderID: m.ID,
			URL:        m.WebLink,
			Password:   m.Password,
			StartsAt:   m.Start,
		}
		out.MeetingID, out.Err = e.meetings.CreateMeeting(ctx, rec)
	}

	fields := map[string]any{
		"platform":   e.platform,
		"meeting_id": m.ID,
		"room_id":    sess.RoomID,
		"task_id":    out.TaskID,
	}
	var text string
	if out.Err != nil {
		fields["error"] = out.Err.Error()
		logger.ErrorCF("reconcile", "Failed to record matched meeting", fields)
		text = fmt.Sprintf("ERROR: Meeting %q was created but could not be saved: %v", title, out.Err)
	} else {
		logger.InfoCF("reconcile", "Meeting linked to request", fields)
		text = fmt.Sprintf("OK: Meeting %q is scheduled.", title)
		if m.WebLink != "" {
			text += "\nJoin: " + m.WebLink
		}
	}

	if sess.RoomID != "" && e.notify != nil {
		if err := e.notify.SendText(ctx, sess.RoomID, text); err != nil {
			logger.WarnCF("reconcile", "Confirmation not sent", map[string]any{
				"room_id": sess.RoomID,
				"error":   err.Error(),
			})
		}
	}
	return out
}

func fillFrom(m events.MeetingDescriptor, full meetings.Meeting) events.MeetingDescriptor {
	if m.Title == "" {
		m.Title = full.Title
	}
	if m.HostEmail == "" {
		m.HostEmail = full.HostEmail
	}
	if m.WebLink == "" {
		m.WebLink = full.WebLink
	}
	if m.Password == "" {
		m.Password = full.Password
	}
	if m.Start.IsZero() {
		m.Start = full.Start
	}
	if m.End.IsZero() {
		m.End = full.End
	}
	return m
}
