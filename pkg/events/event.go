// Package events turns decoded webhook deliveries into a closed set of
// classifications that the rest of the bot switches on.
package events

import "time"

// Webex resource and event names. Slack and Telegram adapters map their own
// payloads onto the same pairs.
const (
	ResourceMessages          = "messages"
	ResourceAttachmentActions = "attachmentActions"
	ResourceMemberships       = "memberships"
	ResourceMeetings          = "meetings"

	EventCreated = "created"
	EventDeleted = "deleted"
	EventUpdated = "updated"
	EventStarted = "started"
	EventEnded   = "ended"
)

// InboundEvent is one webhook delivery after platform decoding.
type InboundEvent struct {
	Platform string
	// EventID is the platform id used for deduplication. May be empty.
	EventID  string
	Resource string
	Event    string

	RoomID     string
	ActorID    string
	ActorEmail string

	// MessageID references the message body for platforms that only send an
	// id in the webhook. Text is set when the platform inlines it.
	MessageID string
	Text      string

	// ActionID references a card submission whose inputs must be fetched.
	// CardInputs is set when the platform inlines them.
	ActionID   string
	CardInputs map[string]string

	Membership *MembershipDescriptor
	Meeting    *MeetingDescriptor
}

// MeetingDescriptor is what a meeting provider reports about a meeting.
type MeetingDescriptor struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	HostEmail string    `json:"hostEmail"`
	WebLink   string    `json:"webLink"`
	Password  string    `json:"password,omitempty"`
	Start     time.Time `json:"start,omitzero"`
	End       time.Time `json:"end,omitzero"`
}

type MembershipDescriptor struct {
	RoomID      string `json:"roomId"`
	PersonID    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
}
