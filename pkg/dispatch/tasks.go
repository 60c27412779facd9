package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/commands"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

// Every successful task mutation is followed by a fresh list so the room
// never shows stale state.

func (b *Bot) createTask(ctx context.Context, req Request, c commands.CreateTask) error {
	if _, err := b.store.CreateTask(ctx, store.Task{Title: c.Title}); err != nil {
		return b.fail(ctx, req.RoomID, "create task", err)
	}
	if err := b.text(ctx, req.RoomID, okPrefix+"Task created: "+c.Title); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) listTasks(ctx context.Context, roomID string) error {
	tasks, err := b.store.ListTasks(ctx)
	if err != nil {
		return b.fail(ctx, roomID, "list tasks", err)
	}
	return b.card(ctx, roomID, "Here are your tasks:", cards.TaskList(tasks))
}

func (b *Bot) deleteTask(ctx context.Context, req Request, c commands.DeleteTask) error {
	n, err := b.store.DeleteTask(ctx, c.ID)
	if err != nil {
		return b.fail(ctx, req.RoomID, "delete task", err)
	}
	if n == 0 {
		return b.taskNotFound(ctx, req.RoomID, c.ID)
	}
	if err := b.text(ctx, req.RoomID, okPrefix+"Task deleted successfully!"); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) modifyTaskPrompt(ctx context.Context, req Request, c commands.ModifyTaskPrompt) error {
	task, err := b.store.GetTask(ctx, c.ID)
	if errors.Is(err, store.ErrNotFound) {
		return b.taskNotFound(ctx, req.RoomID, c.ID)
	}
	if err != nil {
		return b.fail(ctx, req.RoomID, "load task", err)
	}

	b.sessions.Put(session.Session{
		Key:            session.RoomKey(session.KindTaskModify, req.RoomID, req.ActorID),
		Kind:           session.KindTaskModify,
		RequestedTitle: task.Title,
		RoomID:         req.RoomID,
		ActorID:        req.ActorID,
		ActorEmail:     req.ActorEmail,
		Extra:          map[string]string{"task_id": task.ID},
	})
	return b.card(ctx, req.RoomID, "Please modify your task:", cards.ModifyTask(task))
}

func (b *Bot) updateTask(ctx context.Context, req Request, c commands.UpdateTask) error {
	b.sessions.Remove(session.RoomKey(session.KindTaskModify, req.RoomID, req.ActorID))

	n, err := b.store.UpdateTaskTitle(ctx, c.ID, c.NewTitle)
	if err != nil {
		return b.fail(ctx, req.RoomID, "update task", err)
	}
	if n == 0 {
		return b.taskNotFound(ctx, req.RoomID, c.ID)
	}
	if err := b.text(ctx, req.RoomID, okPrefix+"Task updated successfully!"); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) toggleTask(ctx context.Context, req Request, c commands.ToggleTaskComplete) error {
	done := !c.CurrentStatus
	n, err := b.store.SetTaskCompleted(ctx, c.ID, done)
	if err != nil {
		return b.fail(ctx, req.RoomID, "update task", err)
	}
	if n == 0 {
		return b.taskNotFound(ctx, req.RoomID, c.ID)
	}
	state := "incomplete"
	if done {
		state = "complete"
	}
	if err := b.text(ctx, req.RoomID, okPrefix+"Task marked "+state+"."); err != nil {
		return err
	}
	return b.listTasks(ctx, req.RoomID)
}

func (b *Bot) cancelSession(ctx context.Context, req Request, c commands.CancelSession) error {
	sess, ok := b.sessions.Take(session.RoomKey(c.Kind, req.RoomID, req.ActorID))
	if ok && !sess.Pair.IsZero() {
		b.sessions.Remove(sess.Pair)
	}

	switch c.Kind {
	case session.KindTaskModify:
		if err := b.text(ctx, req.RoomID, "Modification cancelled."); err != nil {
			return err
		}
		return b.listTasks(ctx, req.RoomID)
	default:
		if !ok {
			return b.text(ctx, req.RoomID, "No meeting request in progress.")
		}
		return b.text(ctx, req.RoomID, fmt.Sprintf("Meeting scheduling for %q cancelled.", sess.RequestedTitle))
	}
}

func (b *Bot) taskNotFound(ctx context.Context, roomID, id string) error {
	return b.text(ctx, roomID, fmt.Sprintf("%sTask %q not found.", notFoundPrefix, id))
}
