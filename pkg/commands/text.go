package commands

import "strings"

const (
	errMeetingTitle        = "Please provide a meeting title. Example: 'schedule meeting Team Standup'"
	errInstantMeetingTitle = "Please provide a meeting title. Example: 'instant meeting Quick Sync'"
)

// ParseText interprets a chat message. It returns (nil, nil) for text that is
// not a command, and a *ValidationError for a recognised command with bad
// arguments.
//
// Prefix commands require exactly the command word followed by one space
// ("task ", "delete "); the remainder is trimmed.
func ParseText(raw string) (Command, error) {
	text := strings.TrimSpace(raw)

	switch {
	case strings.EqualFold(text, "hello") || strings.EqualFold(text, "hi"):
		return Greet{}, nil

	case hasPrefixFold(text, "task "):
		title := strings.TrimSpace(text[len("task "):])
		if title == "" {
			return nil, nil
		}
		return CreateTask{Title: title}, nil

	case strings.EqualFold(text, "list"):
		return ListTasks{}, nil

	case strings.EqualFold(text, "meetings"):
		return ListMeetings{}, nil

	case strings.EqualFold(text, "my meetings"):
		return ListMyMeetings{}, nil

	case hasPrefixFold(text, "instant meeting"):
		title := strings.TrimSpace(removeFirstFold(text, "instant meeting"))
		if title == "" {
			return nil, Invalid(errInstantMeetingTitle)
		}
		return InstantMeeting{Title: title}, nil

	case hasPrefixFold(text, "delete "):
		return DeleteTask{ID: strings.TrimSpace(text[len("delete "):])}, nil

	case hasPrefixFold(text, "schedule meeting") || hasPrefixFold(text, "meeting"):
		title := removeFirstFold(text, "schedule meeting")
		title = strings.TrimSpace(removeFirstFold(title, "meeting"))
		if title == "" {
			return nil, Invalid(errMeetingTitle)
		}
		return ScheduleMeeting{Title: title}, nil
	}

	return nil, nil
}

// hasPrefixFold reports whether s starts with the ASCII word, ignoring case.
// Offsets stay valid for s because the comparison never lowercases s.
func hasPrefixFold(s, word string) bool {
	return len(s) >= len(word) && strings.EqualFold(s[:len(word)], word)
}

// removeFirstFold removes the first case-insensitive occurrence of the ASCII
// word, scanning s itself so multi-byte runes cannot shift the cut.
func removeFirstFold(s, word string) string {
	for i := 0; i+len(word) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(word)], word) {
			return s[:i] + s[i+len(word):]
		}
	}
	return s
}
