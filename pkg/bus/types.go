package bus

import "github.com/tinyland-inc/botper/pkg/cards"

// OutboundMessage is a reply addressed to one room on one platform.
type OutboundMessage struct {
	ID      string      `json:"id"`
	Channel string      `json:"channel"`
	ChatID  string      `json:"chat_id"`
	Content string      `json:"content"`
	Card    *cards.Card `json:"-"`
}
