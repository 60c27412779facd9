package events

import (
	"context"
	"errors"
	"sync"

	"github.com/tinyland-inc/botper/pkg/logger"
)

type Kind string

const (
	KindMessageCommand   Kind = "message"
	KindCardSubmission   Kind = "card"
	KindMembershipChange Kind = "membership"
	KindMeetingCallback  Kind = "meeting"
	KindIgnored          Kind = "ignored"
)

// Classification is one of MessageCommand, CardSubmission, MembershipChange,
// MeetingCallback or Ignored.
type Classification interface {
	Kind() Kind
	isClassification()
}

type MessageCommand struct {
	RoomID     string
	ActorID    string
	ActorEmail string
	MessageID  string
	// Text is empty when it still has to be fetched by MessageID.
	Text string
}

type CardSubmission struct {
	RoomID     string
	ActorID    string
	ActorEmail string
	ActionID   string
	// Inputs is nil when it still has to be fetched by ActionID.
	Inputs map[string]string
}

type MembershipChange struct {
	RoomID      string
	PersonID    string
	PersonEmail string
	// BotAdded is true when the bot itself joined the room.
	BotAdded bool
}

type MeetingCallback struct {
	Meeting MeetingDescriptor
}

type Ignored struct {
	Reason string
	// Message, when set, is returned to the platform in the acknowledgement.
	Message string
}

func (MessageCommand) Kind() Kind   { return KindMessageCommand }
func (CardSubmission) Kind() Kind   { return KindCardSubmission }
func (MembershipChange) Kind() Kind { return KindMembershipChange }
func (MeetingCallback) Kind() Kind  { return KindMeetingCallback }
func (Ignored) Kind() Kind          { return KindIgnored }

func (MessageCommand) isClassification()   {}
func (CardSubmission) isClassification()   {}
func (MembershipChange) isClassification() {}
func (MeetingCallback) isClassification()  {}
func (Ignored) isClassification()          {}

// IdentityFetcher returns the bot's own actor id on a platform.
type IdentityFetcher interface {
	SelfID(ctx context.Context) (string, error)
}

// SelfCheckPolicy decides what happens to a message when the bot cannot
// determine its own identity.
type SelfCheckPolicy string

const (
	// SelfCheckContinue processes the message anyway. A bot that cannot see
	// its own id may then answer its own messages.
	SelfCheckContinue SelfCheckPolicy = "continue"
	// SelfCheckDrop acknowledges and drops the message.
	SelfCheckDrop SelfCheckPolicy = "drop"
)

const identityUnverified = "could not verify bot identity"

var errNoIdentity = errors.New("no identity source configured")

// Classifier maps InboundEvents to Classifications. The bot identity is
// fetched on first use and cached after the first success.
type Classifier struct {
	identity IdentityFetcher
	policy   SelfCheckPolicy

	mu     sync.Mutex
	selfID string
}

func NewClassifier(identity IdentityFetcher, policy SelfCheckPolicy) *Classifier {
	if policy == "" {
		policy = SelfCheckContinue
	}
	return &Classifier{identity: identity, policy: policy}
}

func (c *Classifier) Classify(ctx context.Context, ev InboundEvent) Classification {
	if ev.Meeting != nil && (ev.Resource == "" || (ev.Resource == ResourceMeetings && ev.Event == EventCreated)) {
		return MeetingCallback{Meeting: *ev.Meeting}
	}

	switch {
	case ev.Resource == ResourceMessages && ev.Event == EventCreated:
		self, err := c.self(ctx)
		if err != nil {
			logger.WarnCF("events", "Bot identity lookup failed", map[string]any{
				"platform": ev.Platform,
				"policy":   string(c.policy),
				"error":    err.Error(),
			})
			if c.policy == SelfCheckDrop {
				return Ignored{Reason: "identity check failed", Message: identityUnverified}
			}
		} else if ev.ActorID != "" && ev.ActorID == self {
			return Ignored{Reason: "self-authored message"}
		}
		return MessageCommand{
			RoomID:     ev.RoomID,
			ActorID:    ev.ActorID,
			ActorEmail: ev.ActorEmail,
			MessageID:  ev.MessageID,
			Text:       ev.Text,
		}

	case ev.Resource == ResourceAttachmentActions && ev.Event == EventCreated:
		return CardSubmission{
			RoomID:     ev.RoomID,
			ActorID:    ev.ActorID,
			ActorEmail: ev.ActorEmail,
			ActionID:   ev.ActionID,
			Inputs:     ev.CardInputs,
		}

	case ev.Resource == ResourceMemberships && ev.Event == EventCreated && ev.Membership != nil:
		mc := MembershipChange{
			RoomID:      ev.Membership.RoomID,
			PersonID:    ev.Membership.PersonID,
			PersonEmail: ev.Membership.PersonEmail,
		}
		if mc.RoomID == "" {
			mc.RoomID = ev.RoomID
		}
		if self, err := c.self(ctx); err == nil && self == mc.PersonID {
			mc.BotAdded = true
		}
		return mc

	case ev.Resource == ResourceMeetings && ev.Event == EventCreated:
		return Ignored{Reason: "meeting event without descriptor"}
	}

	return Ignored{Reason: "unhandled " + ev.Resource + "/" + ev.Event}
}

func (c *Classifier) self(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.selfID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	if c.identity == nil {
		return "", errNoIdentity
	}

	id, err := c.identity.SelfID(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()
	return id, nil
}
