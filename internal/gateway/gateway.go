package gateway

import "context"

// Button is one pressable option attached to a delivered message
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// RenderedMessage is a transport-neutral message with an optional keyboard
type RenderedMessage struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// Gateway delivers rendered messages to an assignee's chat. Implementations
// return an opaque message reference usable for later edits.
type Gateway interface {
	Deliver(ctx context.Context, chatID string, msg RenderedMessage) (string, error)
	Edit(ctx context.Context, chatID, messageRef string, msg RenderedMessage) error
}
