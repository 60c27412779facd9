// Package channels adapts chat platforms to the bot. Each channel decodes its
// platform's webhook deliveries into events.InboundEvent values and renders
// outbound replies, cards included, into the platform's own markup.
package channels

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/events"
)

var (
	// ErrNotAccessible means the platform refused to return a message or card
	// submission, usually because the bot may not read it.
	ErrNotAccessible = errors.New("content not accessible")
	// ErrSignature is returned by Verify for deliveries that fail
	// authentication.
	ErrSignature = errors.New("invalid webhook signature")
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// WebhookChannel is a Channel that receives its events over HTTP.
type WebhookChannel interface {
	Channel
	events.IdentityFetcher

	// Verify authenticates a delivery. Channels without a configured secret
	// accept everything.
	Verify(header http.Header, body []byte) error
	// Decode parses a verified delivery.
	Decode(header http.Header, body []byte) (events.InboundEvent, error)
	// MessageText returns the text of ev's message, fetching it when the
	// platform only sent a reference.
	MessageText(ctx context.Context, ev events.InboundEvent) (string, error)
	// CardInputs returns the submitted inputs of ev's card action.
	CardInputs(ctx context.Context, ev events.InboundEvent) (map[string]string, error)
}

// Challenger is implemented by channels whose platform sends a handshake
// that must be echoed before events are delivered.
type Challenger interface {
	Challenge(body []byte) (string, bool)
}

// EmailResolver is implemented by channels whose deliveries identify users
// by id only.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, actorID string) (string, error)
}

// BaseChannelOption is a functional option for configuring a BaseChannel.
type BaseChannelOption func(*BaseChannel)

// WithMaxMessageLength sets the maximum message length (in runes) for a channel.
// Longer messages are split by the Manager. A value of 0 means no limit.
func WithMaxMessageLength(n int) BaseChannelOption {
	return func(c *BaseChannel) { c.maxMessageLength = n }
}

// MessageLengthProvider is an opt-in interface that channels implement
// to advertise their maximum message length.
type MessageLengthProvider interface {
	MaxMessageLength() int
}

type BaseChannel struct {
	running          atomic.Bool
	name             string
	allowList        []string
	maxMessageLength int
}

func NewBaseChannel(name string, allowList []string, opts ...BaseChannelOption) *BaseChannel {
	bc := &BaseChannel{
		name:      name,
		allowList: allowList,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

func (c *BaseChannel) MaxMessageLength() int {
	return c.maxMessageLength
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

func (c *BaseChannel) Start(context.Context) error {
	c.SetRunning(true)
	return nil
}

func (c *BaseChannel) Stop(context.Context) error {
	c.SetRunning(false)
	return nil
}

// IsAllowed reports whether senderID may talk to the bot. An empty allow
// list admits everyone. Entries and sender ids may use the "id|username"
// form, and email entries match case-insensitively.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart, userPart, _ := strings.Cut(senderID, "|")

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID, allowedUser, _ := strings.Cut(trimmed, "|")

		if senderID == trimmed ||
			idPart == allowedID ||
			(strings.Contains(idPart, "@") && strings.EqualFold(idPart, allowedID)) ||
			(allowedUser != "" && senderID == allowedUser) ||
			(userPart != "" && (userPart == trimmed || userPart == allowedUser)) {
			return true
		}
	}

	return false
}

// SplitMessage breaks text into chunks of at most limit runes, preferring to
// cut at newlines.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
