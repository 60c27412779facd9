package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyland-inc/botper/pkg/commands"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/store"
)

const (
	okPrefix       = "OK: "
	errorPrefix    = "ERROR: "
	notFoundPrefix = "NOT FOUND: "
)

type failureKind int

const (
	failTransient failureKind = iota
	failNotFound
	failPermission
	failValidation
)

func (k failureKind) String() string {
	switch k {
	case failNotFound:
		return "not_found"
	case failPermission:
		return "permission"
	case failValidation:
		return "validation"
	default:
		return "transient"
	}
}

func classifyFailure(err error) failureKind {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, meetings.ErrNotFound):
		return failNotFound
	case errors.Is(err, meetings.ErrPermission):
		return failPermission
	case errors.Is(err, meetings.ErrInvalidTime):
		return failValidation
	}
	if _, ok := commands.AsValidation(err); ok {
		return failValidation
	}
	return failTransient
}

// fail reports a collaborator error for action ("create task", ...) to the
// room.
func (b *Bot) fail(ctx context.Context, roomID, action string, err error) error {
	kind := classifyFailure(err)
	logger.WarnCF("dispatch", "Command failed", map[string]any{
		"platform": b.platform,
		"room_id":  roomID,
		"action":   action,
		"kind":     kind.String(),
		"error":    err.Error(),
	})

	var msg string
	switch kind {
	case failNotFound:
		msg = fmt.Sprintf("%sCould not %s: not found.", notFoundPrefix, action)
	case failPermission:
		msg = fmt.Sprintf("%sCould not %s: the bot is missing meeting permissions.\n\n%s",
			errorPrefix, action, meetings.PermissionHelp)
	case failValidation:
		if ve, ok := commands.AsValidation(err); ok {
			msg = errorPrefix + ve.Msg
		} else {
			msg = fmt.Sprintf("%sCould not %s: %v", errorPrefix, action, err)
		}
	default:
		msg = fmt.Sprintf("%sCould not %s: %v", errorPrefix, action, err)
	}
	return b.text(ctx, roomID, msg)
}
