package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tinyland-inc/botper/pkg/channels"
	"github.com/tinyland-inc/botper/pkg/dedup"
	"github.com/tinyland-inc/botper/pkg/dispatch"
	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/reconcile"
)

// RoomTitler is implemented by channels that can name a room.
type RoomTitler interface {
	RoomTitle(ctx context.Context, roomID string) (string, error)
}

// Platform is the webhook pipeline of one chat platform. Every platform has
// its own dedup window, session store and dispatcher.
type Platform struct {
	Name       string
	Channel    channels.WebhookChannel
	Dedup      *dedup.Filter
	Classifier *events.Classifier
	Bot        *dispatch.Bot
	Reconciler *reconcile.Engine

	// FetchAttempts and FetchBackoff bound the retry around fetching message
	// text, which can lag the webhook.
	FetchAttempts int
	FetchBackoff  time.Duration

	sleep func(context.Context, time.Duration) error
}

// Response is the acknowledgement body of every webhook.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Challenge string `json:"challenge,omitempty"`
}

func ok(msg string) (int, Response) {
	return http.StatusOK, Response{Status: "ok", Message: msg}
}

// Handle runs one delivery through verify, decode, dedup, classify and
// dispatch. Failures inside the bot are reported to the room, never to the
// platform: only unverifiable or undecodable bodies get a non-200 status.
func (p *Platform) Handle(ctx context.Context, header http.Header, body []byte, meter *EventMeter) (int, Response) {
	if err := p.Channel.Verify(header, body); err != nil {
		meter.RecordRejected(p.Name)
		logger.WarnCF("gateway", "Webhook signature rejected", map[string]any{"platform": p.Name})
		return http.StatusUnauthorized, Response{Status: "error", Message: "invalid signature"}
	}
	if ch, isChallenger := p.Channel.(channels.Challenger); isChallenger {
		if c, found := ch.Challenge(body); found {
			return http.StatusOK, Response{Status: "ok", Challenge: c}
		}
	}

	ev, err := p.Channel.Decode(header, body)
	if err != nil {
		meter.RecordRejected(p.Name)
		logger.WarnCF("gateway", "Malformed webhook body", map[string]any{
			"platform": p.Name,
			"error":    err.Error(),
		})
		return http.StatusBadRequest, Response{Status: "error", Message: "malformed webhook body"}
	}

	if !p.Dedup.Admit(ev.EventID) {
		meter.RecordDuplicate(p.Name)
		logger.DebugCF("gateway", "Duplicate event", map[string]any{"platform": p.Name, "event_id": ev.EventID})
		return ok("duplicate event")
	}

	p.resolveEmail(ctx, &ev)
	cls := p.Classifier.Classify(ctx, ev)
	meter.Record(p.Name, string(cls.Kind()), time.Now())
	logger.InfoCF("gateway", "Webhook received", map[string]any{
		"platform": p.Name,
		"event_id": ev.EventID,
		"resource": ev.Resource,
		"event":    ev.Event,
		"kind":     string(cls.Kind()),
	})

	switch c := cls.(type) {
	case events.Ignored:
		logger.DebugCF("gateway", "Event ignored", map[string]any{"platform": p.Name, "reason": c.Reason})
		return ok(c.Message)

	case events.MessageCommand:
		if !p.allowed(c.ActorID, c.ActorEmail) {
			return ok("sender not allowed")
		}
		text := c.Text
		if text == "" && c.MessageID != "" {
			text, err = p.fetchText(ctx, ev)
			if errors.Is(err, channels.ErrNotAccessible) {
				return ok("message not accessible")
			}
			if err != nil {
				logger.ErrorCF("gateway", "Message fetch failed", map[string]any{
					"platform":   p.Name,
					"message_id": c.MessageID,
					"error":      err.Error(),
				})
				return ok("message not available")
			}
		}
		req := dispatch.Request{RoomID: c.RoomID, ActorID: c.ActorID, ActorEmail: c.ActorEmail}
		_ = p.Bot.HandleText(ctx, req, text)
		return ok("")

	case events.CardSubmission:
		if !p.allowed(c.ActorID, c.ActorEmail) {
			return ok("sender not allowed")
		}
		inputs, err := p.Channel.CardInputs(ctx, ev)
		if errors.Is(err, channels.ErrNotAccessible) {
			return ok("card action not accessible")
		}
		if err != nil {
			logger.ErrorCF("gateway", "Card action fetch failed", map[string]any{
				"platform":  p.Name,
				"action_id": c.ActionID,
				"error":     err.Error(),
			})
			return ok("card action not available")
		}
		req := dispatch.Request{RoomID: c.RoomID, ActorID: c.ActorID, ActorEmail: c.ActorEmail}
		_ = p.Bot.HandleCard(ctx, req, inputs)
		return ok("")

	case events.MembershipChange:
		if !c.BotAdded {
			return ok("")
		}
		var title string
		if rt, isTitler := p.Channel.(RoomTitler); isTitler {
			if t, err := rt.RoomTitle(ctx, c.RoomID); err == nil {
				title = t
			}
		}
		_ = p.Bot.GreetRoom(ctx, c.RoomID, title)
		return ok("")

	case events.MeetingCallback:
		if p.Reconciler == nil {
			return ok("meeting callbacks not handled")
		}
		out := p.Reconciler.Reconcile(ctx, c.Meeting)
		if !out.Matched {
			return ok("no pending meeting request")
		}
		return ok("")
	}
	return ok("")
}

func (p *Platform) allowed(ids ...string) bool {
	seen := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		seen = true
		if p.Channel.IsAllowed(id) {
			return true
		}
	}
	return !seen && p.Channel.IsAllowed("")
}

func (p *Platform) resolveEmail(ctx context.Context, ev *events.InboundEvent) {
	if ev.ActorEmail != "" || ev.ActorID == "" {
		return
	}
	if ev.Resource != events.ResourceMessages && ev.Resource != events.ResourceAttachmentActions {
		return
	}
	r, canResolve := p.Channel.(channels.EmailResolver)
	if !canResolve {
		return
	}
	email, err := r.ResolveEmail(ctx, ev.ActorID)
	if err != nil {
		logger.DebugCF("gateway", "Email lookup failed", map[string]any{
			"platform": p.Name,
			"actor_id": ev.ActorID,
			"error":    err.Error(),
		})
		return
	}
	ev.ActorEmail = email
}

// fetchText retries with exponential backoff. Only this call is retried.
func (p *Platform) fetchText(ctx context.Context, ev events.InboundEvent) (string, error) {
	attempts := max(p.FetchAttempts, 1)
	backoff := p.FetchBackoff
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for i := range attempts {
		var text string
		text, err = p.Channel.MessageText(ctx, ev)
		if err == nil {
			return text, nil
		}
		if i == attempts-1 {
			break
		}
		logger.DebugCF("gateway", "Retrying message fetch", map[string]any{
			"platform": p.Name,
			"attempt":  i + 1,
			"backoff":  backoff.String(),
		})
		if serr := sleep(ctx, backoff); serr != nil {
			return "", serr
		}
		backoff *= 2
	}
	return "", err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
