// Package dispatch executes parsed commands against the task store, the
// session store and the meeting provider, and reports results to the room.
//
// Collaborator failures never escape Execute: they are turned into messages
// prefixed "ERROR:" or "NOT FOUND:" so the webhook can still be acknowledged.
package dispatch

import (
	"context"
	"time"

	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/commands"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

// Messenger delivers replies to a room.
type Messenger interface {
	SendText(ctx context.Context, roomID, text string) error
	SendCard(ctx context.Context, roomID, text string, card *cards.Card) error
}

// MeetingProvider creates and lists meetings at the meeting service.
type MeetingProvider interface {
	Create(ctx context.Context, req meetings.CreateRequest) (meetings.Meeting, error)
	List(ctx context.Context, hostEmail string, limit int) ([]meetings.Meeting, error)
}

// Request is who sent a command and where to answer.
type Request struct {
	RoomID     string
	ActorID    string
	ActorEmail string
}

type Options struct {
	Platform  string
	Store     store.Store
	Sessions  *session.Store
	Messenger Messenger
	// Provider may be nil, in which case meeting commands report that
	// scheduling is not configured.
	Provider        MeetingProvider
	DefaultDuration time.Duration
	StartBuffer     time.Duration
	Now             func() time.Time
}

type Bot struct {
	platform    string
	store       store.Store
	sessions    *session.Store
	out         Messenger
	provider    MeetingProvider
	duration    time.Duration
	startBuffer time.Duration
	now         func() time.Time
}

func New(o Options) *Bot {
	b := &Bot{
		platform:    o.Platform,
		store:       o.Store,
		sessions:    o.Sessions,
		out:         o.Messenger,
		provider:    o.Provider,
		duration:    o.DefaultDuration,
		startBuffer: o.StartBuffer,
		now:         o.Now,
	}
	if b.sessions == nil {
		b.sessions = session.NewStore(session.DefaultTTL)
	}
	if b.duration <= 0 {
		b.duration = meetings.DefaultDuration
	}
	if b.startBuffer <= 0 {
		b.startBuffer = 2 * time.Minute
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *Bot) Sessions() *session.Store { return b.sessions }

// HandleText parses and executes a chat message. Unrecognised text is ignored.
func (b *Bot) HandleText(ctx context.Context, req Request, text string) error {
	cmd, err := commands.ParseText(text)
	return b.handleParsed(ctx, req, cmd, err)
}

// HandleCard parses and executes a card submission. Unknown actions are
// ignored.
func (b *Bot) HandleCard(ctx context.Context, req Request, inputs map[string]string) error {
	cmd, err := commands.ParseCard(inputs)
	return b.handleParsed(ctx, req, cmd, err)
}

func (b *Bot) handleParsed(ctx context.Context, req Request, cmd commands.Command, err error) error {
	if err != nil {
		if ve, ok := commands.AsValidation(err); ok {
			return b.text(ctx, req.RoomID, errorPrefix+ve.Msg)
		}
		return b.fail(ctx, req.RoomID, "process command", err)
	}
	if cmd == nil {
		return nil
	}
	return b.Execute(ctx, req, cmd)
}

// Execute runs cmd. The returned error is only a delivery failure of the
// reply itself; command failures are reported to the room.
func (b *Bot) Execute(ctx context.Context, req Request, cmd commands.Command) error {
	logger.DebugCF("dispatch", "Executing command", map[string]any{
		"platform": b.platform,
		"command":  cmd.Name(),
		"room_id":  req.RoomID,
		"actor_id": req.ActorID,
	})

	switch c := cmd.(type) {
	case commands.Greet:
		return b.Greet(ctx, req.RoomID)
	case commands.CreateTask:
		return b.createTask(ctx, req, c)
	case commands.ListTasks:
		return b.listTasks(ctx, req.RoomID)
	case commands.DeleteTask:
		return b.deleteTask(ctx, req, c)
	case commands.ModifyTaskPrompt:
		return b.modifyTaskPrompt(ctx, req, c)
	case commands.UpdateTask:
		return b.updateTask(ctx, req, c)
	case commands.ToggleTaskComplete:
		return b.toggleTask(ctx, req, c)
	case commands.ScheduleMeeting:
		return b.scheduleMeeting(ctx, req, c)
	case commands.SubmitMeetingForm:
		return b.submitMeetingForm(ctx, req, c)
	case commands.CancelSession:
		return b.cancelSession(ctx, req, c)
	case commands.ListMeetings:
		return b.listMeetings(ctx, req.RoomID)
	case commands.ListMyMeetings:
		return b.listMyMeetings(ctx, req)
	case commands.InstantMeeting:
		return b.instantMeeting(ctx, req, c)
	case commands.SaveMeetingLink:
		return b.saveMeetingLink(ctx, req, c)
	}

	logger.WarnCF("dispatch", "Unhandled command", map[string]any{"command": cmd.Name()})
	return nil
}

// Greet sends the welcome text and command menu.
func (b *Bot) Greet(ctx context.Context, roomID string) error {
	return b.text(ctx, roomID, greeting)
}

// GreetRoom welcomes a room the bot was just added to. title may be empty.
func (b *Bot) GreetRoom(ctx context.Context, roomID, title string) error {
	if title == "" {
		return b.Greet(ctx, roomID)
	}
	return b.text(ctx, roomID, "Hi everyone in "+title+"!\n\n"+greeting)
}

func (b *Bot) text(ctx context.Context, roomID, text string) error {
	err := b.out.SendText(ctx, roomID, text)
	if err != nil {
		logger.ErrorCF("dispatch", "Reply not delivered", map[string]any{
			"platform": b.platform,
			"room_id":  roomID,
			"error":    err.Error(),
		})
	}
	return err
}

func (b *Bot) card(ctx context.Context, roomID, text string, c *cards.Card) error {
	err := b.out.SendCard(ctx, roomID, text, c)
	if err != nil {
		logger.ErrorCF("dispatch", "Card not delivered", map[string]any{
			"platform": b.platform,
			"room_id":  roomID,
			"error":    err.Error(),
		})
	}
	return err
}
