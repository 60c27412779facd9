package channels

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreAnyFunction("github.com/valyala/fasthttp.(*HostClient).connsCleaner"),
	)
}

func TestIsAllowed(t *testing.T) {
	open := NewBaseChannel("x", nil)
	assert.True(t, open.IsAllowed("anyone"))

	c := NewBaseChannel("x", []string{"123", "@alice", "Bob@Acme.com", "999|carol"})
	assert.True(t, c.IsAllowed("123"))
	assert.True(t, c.IsAllowed("123|someone"))
	assert.True(t, c.IsAllowed("555|alice"))
	assert.True(t, c.IsAllowed("bob@acme.com"))
	assert.True(t, c.IsAllowed("999"))
	assert.True(t, c.IsAllowed("carol"))
	assert.False(t, c.IsAllowed("456"))
	assert.False(t, c.IsAllowed("mallory@acme.com"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"abc"}, SplitMessage("abc", 0))

	parts := SplitMessage("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one\n", "line two\n", "line three"}, parts)
	assert.Equal(t, "line one\nline two\nline three", strings.Join(parts, ""))

	parts = SplitMessage(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}

type recordingChannel struct {
	*BaseChannel
	mu   sync.Mutex
	sent []bus.OutboundMessage
	fail bool
}

func (c *recordingChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("boom")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *recordingChannel) messages() []bus.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bus.OutboundMessage(nil), c.sent...)
}

func TestManagerDeliversInOrder(t *testing.T) {
	mb := bus.NewMessageBus()
	m := NewManager(mb)
	ch := &recordingChannel{BaseChannel: NewBaseChannel("webex", nil, WithMaxMessageLength(5))}
	m.Register(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	out := NewOutbox(mb, "webex")
	require.NoError(t, out.SendText(ctx, "r1", "first"))
	require.NoError(t, out.SendCard(ctx, "r1", "a card that is long", &cards.Card{Title: "T"}))
	require.NoError(t, out.SendText(ctx, "r1", "0123456789"))
	require.NoError(t, NewOutbox(mb, "nowhere").SendText(ctx, "r1", "dropped"))

	require.Eventually(t, func() bool { return len(ch.messages()) == 4 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := ch.messages()
	assert.Equal(t, "first", got[0].Content)
	// cards are never split
	assert.Equal(t, "a card that is long", got[1].Content)
	assert.NotNil(t, got[1].Card)
	assert.Equal(t, "01234", got[2].Content)
	assert.Equal(t, "56789", got[3].Content)
	assert.Equal(t, got[2].ID, got[3].ID)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(bus.NewMessageBus())
	m.Register(&recordingChannel{BaseChannel: NewBaseChannel("slack", nil)})
	m.Register(&recordingChannel{BaseChannel: NewBaseChannel("webex", nil)})

	assert.Equal(t, []string{"slack", "webex"}, m.Names())
	require.NoError(t, m.StartAll(context.Background()))
	assert.Equal(t, map[string]bool{"slack": true, "webex": true}, m.Status())
	require.NoError(t, m.StopAll(context.Background()))
	assert.Equal(t, map[string]bool{"slack": false, "webex": false}, m.Status())
}

func TestManagerStopsWhenBusCloses(t *testing.T) {
	mb := bus.NewMessageBus()
	m := NewManager(mb)
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	mb.Close()
	require.NoError(t, <-done)
}
