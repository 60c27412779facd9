package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/commands"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
	"github.com/tinyland-inc/botper/pkg/utils"
)

const (
	errRequiredFields = "Please fill in all required fields (date and time)."
	errPastMeeting    = "Meeting time must be in the future."
)

// scheduleMeeting starts the form flow. It stores a form session keyed by
// (room, actor) and, when the actor's email is known, a matching session
// keyed by (email, title) for provider callbacks. The two reference each
// other and are removed together.
func (b *Bot) scheduleMeeting(ctx context.Context, req Request, c commands.ScheduleMeeting) error {
	form := session.RoomKey(session.KindMeetingSchedule, req.RoomID, req.ActorID)
	base := session.Session{
		Kind:           session.KindMeetingSchedule,
		RequestedTitle: c.Title,
		RoomID:         req.RoomID,
		ActorID:        req.ActorID,
		ActorEmail:     req.ActorEmail,
		Extra:          map[string]string{"host_email": req.ActorEmail},
	}

	formSess := base
	formSess.Key = form
	if req.ActorEmail != "" {
		ident := session.IdentityKey(req.ActorEmail, c.Title)
		formSess.Pair = ident

		matchSess := base
		matchSess.Key = ident
		matchSess.Pair = form
		b.sessions.Put(matchSess)
	}
	b.sessions.Put(formSess)

	today := b.now().UTC().Format("2006-01-02")
	return b.card(ctx, req.RoomID, "Please fill in the meeting details:", cards.MeetingForm(c.Title, today))
}

// submitMeetingForm completes the form flow. Validation failures leave the
// session in place so the user can resubmit. Once the input is valid the
// session is consumed whatever the provider answers.
func (b *Bot) submitMeetingForm(ctx context.Context, req Request, c commands.SubmitMeetingForm) error {
	key := session.RoomKey(session.KindMeetingSchedule, req.RoomID, req.ActorID)
	sess, ok := b.sessions.Get(key)
	if !ok {
		return b.text(ctx, req.RoomID, errorPrefix+"No meeting request in progress. Send 'schedule meeting <title>' to start.")
	}

	form := c.Form
	if form.Title == "" {
		form.Title = sess.RequestedTitle
	}
	host := sess.Extra["host_email"]
	if host == "" {
		host = req.ActorEmail
	}

	plan, err := b.planMeeting(form, false)
	if err != nil {
		return b.fail(ctx, req.RoomID, "schedule meeting", err)
	}

	// Only the first of racing submit/cancel deliveries gets here.
	if _, ok := b.sessions.Take(key); !ok {
		return nil
	}
	if !sess.Pair.IsZero() {
		b.sessions.Remove(sess.Pair)
	}

	rec, err := b.createMeeting(ctx, host, plan)
	if err != nil {
		return b.fail(ctx, req.RoomID, "create meeting", err)
	}
	if err := b.text(ctx, req.RoomID, confirmation(rec)); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

// ScheduleFromForm backs the web form endpoint. Unlike the chat flow it
// rejects start times closer than the start buffer.
func (b *Bot) ScheduleFromForm(ctx context.Context, hostEmail string, form commands.MeetingForm) (store.Meeting, error) {
	plan, err := b.planMeeting(form, true)
	if err != nil {
		return store.Meeting{}, err
	}
	return b.createMeeting(ctx, hostEmail, plan)
}

type meetingPlan struct {
	form         commands.MeetingForm
	start, end   time.Time
	participants []string
}

func (b *Bot) planMeeting(form commands.MeetingForm, enforceBuffer bool) (meetingPlan, error) {
	form.Title = strings.TrimSpace(form.Title)
	if form.Title == "" {
		return meetingPlan{}, commands.Invalid("Please provide a meeting title.")
	}
	if strings.TrimSpace(form.Date) == "" || strings.TrimSpace(form.Time) == "" {
		return meetingPlan{}, commands.Invalid(errRequiredFields)
	}

	duration := b.duration
	if form.Duration != "" {
		d, err := meetings.ParseDuration(form.Duration)
		if err != nil {
			return meetingPlan{}, commands.Invalid("Duration must be a number of minutes.")
		}
		duration = d
	}
	start, end, err := meetings.FormatDateTime(form.Date, form.Time, form.Timezone, duration)
	if err != nil {
		return meetingPlan{}, commands.Invalid("Please use date YYYY-MM-DD, time HH:MM and a timezone like UTC+02:00.")
	}
	now := b.now()
	if enforceBuffer && start.Before(now.Add(b.startBuffer)) {
		return meetingPlan{}, commands.Invalid(fmt.Sprintf(
			"Meeting must start at least %d minutes from now.", int(b.startBuffer/time.Minute)))
	}
	if start.Before(now) {
		return meetingPlan{}, commands.Invalid(errPastMeeting)
	}

	participants, err := utils.ParseEmailList(form.Participants)
	if err != nil {
		return meetingPlan{}, commands.Invalid(err.Error())
	}
	if form.Timezone == "" {
		form.Timezone = "UTC"
	}
	return meetingPlan{form: form, start: start, end: end, participants: participants}, nil
}

// createMeeting calls the provider and, only on success, persists the meeting
// and a matching task. The two writes are independent.
func (b *Bot) createMeeting(ctx context.Context, host string, p meetingPlan) (store.Meeting, error) {
	if b.provider == nil {
		return store.Meeting{}, errNoProvider
	}
	m, err := b.provider.Create(ctx, meetings.CreateRequest{
		Title:        p.form.Title,
		Start:        p.start,
		End:          p.end,
		HostEmail:    host,
		Participants: p.participants,
	})
	if err != nil {
		return store.Meeting{}, err
	}

	rec := store.Meeting{
		Title:        "Webex Meeting: " + p.form.Title,
		Date:         displayDate(p.form.Date),
		Time:         p.form.Time,
		Timezone:     p.form.Timezone,
		Participants: p.participants,
		HostEmail:    host,
		Status:       store.MeetingScheduled,
		Platform:     b.platform,
		ProviderID:   m.ID,
		URL:          m.WebLink,
		Password:     m.Password,
		StartsAt:     p.start,
	}
	return b.persistMeeting(ctx, rec)
}

func (b *Bot) persistMeeting(ctx context.Context, rec store.Meeting) (store.Meeting, error) {
	id, err := b.store.CreateMeeting(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("save meeting: %w", err)
	}
	rec.ID = id

	_, err = b.store.CreateTask(ctx, store.Task{
		Title:       rec.Title,
		Type:        store.TaskTypeMeeting,
		MeetingLink: rec.URL,
		StartTime:   formatStart(rec.StartsAt),
		Date:        rec.Date,
		Time:        rec.Time,
	})
	if err != nil {
		logger.ErrorCF("dispatch", "Meeting saved without task", map[string]any{
			"meeting_id": rec.ID,
			"error":      err.Error(),
		})
		return rec, fmt.Errorf("save meeting task: %w", err)
	}
	return rec, nil
}

func (b *Bot) instantMeeting(ctx context.Context, req Request, c commands.InstantMeeting) error {
	now := b.now().UTC()
	plan := meetingPlan{
		form: commands.MeetingForm{
			Title:    c.Title,
			Date:     now.Format("2006-01-02"),
			Time:     now.Format("15:04"),
			Timezone: "UTC",
		},
		start: now,
		end:   now.Add(b.duration),
	}
	rec, err := b.createMeeting(ctx, req.ActorEmail, plan)
	if err != nil {
		return b.fail(ctx, req.RoomID, "create instant meeting", err)
	}
	if err := b.text(ctx, req.RoomID, confirmation(rec)); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) saveMeetingLink(ctx context.Context, req Request, c commands.SaveMeetingLink) error {
	title := c.Title
	key := session.RoomKey(session.KindMeetingSchedule, req.RoomID, req.ActorID)
	if sess, ok := b.sessions.Take(key); ok {
		if title == "" {
			title = sess.RequestedTitle
		}
		if !sess.Pair.IsZero() {
			b.sessions.Remove(sess.Pair)
		}
	}
	if title == "" {
		title = "Meeting"
	}

	_, err := b.persistMeeting(ctx, store.Meeting{
		Title:     "Webex Meeting: " + title,
		HostEmail: req.ActorEmail,
		Status:    store.MeetingScheduled,
		Platform:  b.platform,
		URL:       c.Link,
	})
	if err != nil {
		return b.fail(ctx, req.RoomID, "save meeting link", err)
	}
	if err := b.text(ctx, req.RoomID, okPrefix+"Meeting link saved for "+title+"."); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) listMeetings(ctx context.Context, roomID string) error {
	list, err := b.store.ListMeetings(ctx)
	if err != nil {
		return b.fail(ctx, roomID, "list meetings", err)
	}
	return b.text(ctx, roomID, formatStoredMeetings(list))
}

func (b *Bot) listMyMeetings(ctx context.Context, req Request) error {
	if req.ActorEmail == "" {
		return b.text(ctx, req.RoomID, errorPrefix+"Your email address is not known on this platform.")
	}
	if b.provider == nil {
		return b.fail(ctx, req.RoomID, "list meetings", errNoProvider)
	}
	list, err := b.provider.List(ctx, req.ActorEmail, 10)
	if err != nil {
		return b.fail(ctx, req.RoomID, "list meetings", err)
	}
	return b.text(ctx, req.RoomID, formatProviderMeetings(req.ActorEmail, list))
}
