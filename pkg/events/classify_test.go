package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentity struct {
	id    string
	err   error
	calls int
}

func (s *stubIdentity) SelfID(context.Context) (string, error) {
	s.calls++
	return s.id, s.err
}

func TestClassify_Message(t *testing.T) {
	c := NewClassifier(&stubIdentity{id: "bot"}, SelfCheckContinue)
	got := c.Classify(context.Background(), InboundEvent{
		Resource:   ResourceMessages,
		Event:      EventCreated,
		RoomID:     "room",
		ActorID:    "alice",
		ActorEmail: "alice@example.com",
		MessageID:  "m1",
	})

	msg, ok := got.(MessageCommand)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "room", msg.RoomID)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, KindMessageCommand, got.Kind())
}

func TestClassify_SelfAuthoredIgnored(t *testing.T) {
	id := &stubIdentity{id: "bot"}
	c := NewClassifier(id, SelfCheckContinue)
	ev := InboundEvent{Resource: ResourceMessages, Event: EventCreated, ActorID: "bot"}

	got := c.Classify(context.Background(), ev)
	ign, ok := got.(Ignored)
	require.True(t, ok)
	assert.Equal(t, "self-authored message", ign.Reason)

	c.Classify(context.Background(), ev)
	assert.Equal(t, 1, id.calls, "identity must be cached after success")
}

func TestClassify_IdentityFailurePolicy(t *testing.T) {
	ev := InboundEvent{Resource: ResourceMessages, Event: EventCreated, ActorID: "alice", Text: "list"}
	failing := &stubIdentity{err: errors.New("401")}

	got := NewClassifier(failing, SelfCheckContinue).Classify(context.Background(), ev)
	assert.Equal(t, KindMessageCommand, got.Kind())

	got = NewClassifier(failing, SelfCheckDrop).Classify(context.Background(), ev)
	ign, ok := got.(Ignored)
	require.True(t, ok)
	assert.Equal(t, "could not verify bot identity", ign.Message)

	got = NewClassifier(failing, "").Classify(context.Background(), ev)
	assert.Equal(t, KindMessageCommand, got.Kind(), "default policy continues")
}

func TestClassify_CardSubmission(t *testing.T) {
	c := NewClassifier(&stubIdentity{id: "bot"}, SelfCheckContinue)
	got := c.Classify(context.Background(), InboundEvent{
		Resource:   ResourceAttachmentActions,
		Event:      EventCreated,
		RoomID:     "room",
		ActorID:    "alice",
		ActionID:   "a1",
		CardInputs: map[string]string{"action": "list"},
	})
	card, ok := got.(CardSubmission)
	require.True(t, ok)
	assert.Equal(t, "a1", card.ActionID)
	assert.Equal(t, "list", card.Inputs["action"])
}

func TestClassify_Membership(t *testing.T) {
	c := NewClassifier(&stubIdentity{id: "bot"}, SelfCheckContinue)

	got := c.Classify(context.Background(), InboundEvent{
		Resource:   ResourceMemberships,
		Event:      EventCreated,
		Membership: &MembershipDescriptor{RoomID: "room", PersonID: "bot"},
	})
	mc, ok := got.(MembershipChange)
	require.True(t, ok)
	assert.True(t, mc.BotAdded)

	got = c.Classify(context.Background(), InboundEvent{
		Resource:   ResourceMemberships,
		Event:      EventCreated,
		Membership: &MembershipDescriptor{RoomID: "room", PersonID: "alice"},
	})
	mc, ok = got.(MembershipChange)
	require.True(t, ok)
	assert.False(t, mc.BotAdded)
}

func TestClassify_MeetingCallback(t *testing.T) {
	c := NewClassifier(&stubIdentity{id: "bot"}, SelfCheckContinue)
	desc := &MeetingDescriptor{ID: "mtg", Title: "Sprint Review", HostEmail: "a@x"}

	got := c.Classify(context.Background(), InboundEvent{Meeting: desc})
	cb, ok := got.(MeetingCallback)
	require.True(t, ok)
	assert.Equal(t, "Sprint Review", cb.Meeting.Title)

	got = c.Classify(context.Background(), InboundEvent{Resource: ResourceMeetings, Event: EventEnded, Meeting: desc})
	assert.Equal(t, KindIgnored, got.Kind())
}

func TestClassify_UnknownIgnored(t *testing.T) {
	c := NewClassifier(&stubIdentity{id: "bot"}, SelfCheckContinue)
	got := c.Classify(context.Background(), InboundEvent{Resource: "rooms", Event: EventUpdated})
	ign, ok := got.(Ignored)
	require.True(t, ok)
	assert.Equal(t, "unhandled rooms/updated", ign.Reason)
}

func TestDecodeWebex_Envelope(t *testing.T) {
	body := `{"id":"wh1","resource":"messages","event":"created",
		"data":{"id":"msg1","roomId":"room1","personId":"p1","personEmail":"p1@example.com"}}`
	ev, err := DecodeWebex([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "msg1", ev.EventID)
	assert.Equal(t, "msg1", ev.MessageID)
	assert.Equal(t, "room1", ev.RoomID)
	assert.Equal(t, "p1@example.com", ev.ActorEmail)
}

func TestDecodeWebex_AttachmentInputs(t *testing.T) {
	body := `{"resource":"attachmentActions","event":"created",
		"data":{"id":"act1","roomId":"r","personId":"p","messageId":"m","inputs":{"action":"toggle","completed":true}}}`
	ev, err := DecodeWebex([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "act1", ev.ActionID)
	assert.Equal(t, map[string]string{"action": "toggle", "completed": "true"}, ev.CardInputs)
}

func TestDecodeWebex_BareMeeting(t *testing.T) {
	body := `{"id":"mtg1","title":"Team Sync","hostEmail":"h@example.com",
		"webLink":"https://x.webex.com/m","start":"2025-11-01T14:00:00Z"}`
	ev, err := DecodeWebex([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, ev.Meeting)
	assert.Equal(t, "mtg1", ev.EventID)
	assert.Equal(t, "Team Sync", ev.Meeting.Title)
	assert.Equal(t, time.Date(2025, 11, 1, 14, 0, 0, 0, time.UTC), ev.Meeting.Start)
}

func TestDecodeWebex_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `[1,2]`} {
		_, err := DecodeWebex([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}
