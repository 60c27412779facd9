package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned for bodies that are not a webhook envelope or a
// meeting descriptor.
var ErrMalformed = errors.New("malformed webhook body")

type webexEnvelope struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Resource string          `json:"resource"`
	Event    string          `json:"event"`
	ActorID  string          `json:"actorId"`
	Data     json.RawMessage `json:"data"`
}

type webexData struct {
	ID          string         `json:"id"`
	RoomID      string         `json:"roomId"`
	PersonID    string         `json:"personId"`
	PersonEmail string         `json:"personEmail"`
	MessageID   string         `json:"messageId"`
	Text        string         `json:"text"`
	Inputs      map[string]any `json:"inputs"`
	Title       string         `json:"title"`
	HostEmail   string         `json:"hostEmail"`
	WebLink     string         `json:"webLink"`
	Password    string         `json:"password"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
}

// DecodeWebex parses a Webex webhook body. Besides the standard envelope
// ({resource, event, data}) it accepts a bare meeting descriptor
// ({id, title, hostEmail, webLink, start}) as posted by meeting-provider
// callbacks.
func DecodeWebex(body []byte) (InboundEvent, error) {
	var env webexEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if env.Resource == "" && len(env.Data) == 0 {
		var d webexData
		if err := json.Unmarshal(body, &d); err != nil {
			return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d.ID == "" && d.Title == "" {
			return InboundEvent{}, fmt.Errorf("%w: neither an event envelope nor a meeting", ErrMalformed)
		}
		return InboundEvent{
			Platform: "webex",
			EventID:  d.ID,
			Meeting:  meetingFrom(d),
		}, nil
	}

	var d webexData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return InboundEvent{}, fmt.Errorf("%w: data: %v", ErrMalformed, err)
		}
	}

	ev := InboundEvent{
		Platform:   "webex",
		EventID:    d.ID,
		Resource:   env.Resource,
		Event:      env.Event,
		RoomID:     d.RoomID,
		ActorID:    d.PersonID,
		ActorEmail: d.PersonEmail,
	}
	if ev.ActorID == "" {
		ev.ActorID = env.ActorID
	}

	switch env.Resource {
	case ResourceMessages:
		ev.MessageID = d.ID
		ev.Text = d.Text
	case ResourceAttachmentActions:
		ev.ActionID = d.ID
		ev.MessageID = d.MessageID
		if d.Inputs != nil {
			ev.CardInputs = StringInputs(d.Inputs)
		}
	case ResourceMemberships:
		ev.Membership = &MembershipDescriptor{
			RoomID:      d.RoomID,
			PersonID:    d.PersonID,
			PersonEmail: d.PersonEmail,
		}
	case ResourceMeetings:
		ev.Meeting = meetingFrom(d)
	}
	return ev, nil
}

func meetingFrom(d webexData) *MeetingDescriptor {
	return &MeetingDescriptor{
		ID:        d.ID,
		Title:     d.Title,
		HostEmail: d.HostEmail,
		WebLink:   d.WebLink,
		Password:  d.Password,
		Start:     parseTime(d.Start),
		End:       parseTime(d.End),
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StringInputs flattens card inputs to strings. Non-string values are
// formatted with %v.
func StringInputs(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case float64:
			out[k] = fmt.Sprintf("%g", val)
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
