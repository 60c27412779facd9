package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/logger"
)

// Manager owns the enabled channels and delivers queued replies to them in
// the order they were published.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewManager(mb *bus.MessageBus) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		bus:      mb,
	}
}

func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns the registered channel names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports whether each channel is running.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		out[name] = ch.IsRunning()
	}
	return out
}

func (m *Manager) StartAll(ctx context.Context) error {
	for _, name := range m.Names() {
		ch, _ := m.Get(name)
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		logger.InfoCF("channels", "Channel started", map[string]any{"channel": name})
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	var firstErr error
	for _, name := range m.Names() {
		ch, _ := m.Get(name)
		if err := ch.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop channel %s: %w", name, err)
		}
	}
	return firstErr
}

// Run delivers outbound messages until ctx is done or the bus is closed.
func (m *Manager) Run(ctx context.Context) error {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return nil
		}
		m.deliver(ctx, msg)
	}
}

func (m *Manager) deliver(ctx context.Context, msg bus.OutboundMessage) {
	ch, ok := m.Get(msg.Channel)
	if !ok {
		logger.WarnCF("channels", "No channel for outbound message", map[string]any{
			"channel": msg.Channel,
			"chat_id": msg.ChatID,
		})
		return
	}

	parts := []bus.OutboundMessage{msg}
	if lp, ok := ch.(MessageLengthProvider); ok && msg.Card == nil {
		chunks := SplitMessage(msg.Content, lp.MaxMessageLength())
		if len(chunks) > 1 {
			parts = parts[:0]
			for _, c := range chunks {
				part := msg
				part.Content = c
				parts = append(parts, part)
			}
		}
	}

	for _, part := range parts {
		if err := ch.Send(ctx, part); err != nil {
			logger.ErrorCF("channels", "Send failed", map[string]any{
				"channel":    msg.Channel,
				"chat_id":    msg.ChatID,
				"message_id": msg.ID,
				"error":      err.Error(),
			})
			return
		}
	}
}

// Outbox queues replies for one channel on the bus. It satisfies the
// messenger interfaces of the dispatcher and the reconciliation engine.
type Outbox struct {
	bus     *bus.MessageBus
	channel string
}

func NewOutbox(mb *bus.MessageBus, channel string) *Outbox {
	return &Outbox{bus: mb, channel: channel}
}

func (o *Outbox) SendText(ctx context.Context, roomID, text string) error {
	return o.bus.PublishOutbound(ctx, bus.OutboundMessage{
		ID:      uuid.NewString(),
		Channel: o.channel,
		ChatID:  roomID,
		Content: text,
	})
}

func (o *Outbox) SendCard(ctx context.Context, roomID, text string, card *cards.Card) error {
	return o.bus.PublishOutbound(ctx, bus.OutboundMessage{
		ID:      uuid.NewString(),
		Channel: o.channel,
		ChatID:  roomID,
		Content: text,
		Card:    card,
	})
}
