// Package telegram is the chat-transport boundary. The core consumes the
// narrow Transport interface only; the Bot API long-poll client here is the
// single place that knows the wire format.
package telegram

import (
	"context"

	"github.com/dkorchagin/shareup/internal/dialog"
)

// Update is one operator input: either a plain message (Text set) or an
// inline-keyboard press (Callback* set).
type Update struct {
	From      int64
	ChatID    int64
	MessageID int
	Text      string

	CallbackID        string
	CallbackData      string
	CallbackMessageID int
}

// IsCallback reports whether the update is a keyboard press.
func (u Update) IsCallback() bool { return u.CallbackID != "" }

// Transport is everything the bot needs from the chat side: a stream of
// operator inputs plus send, edit-in-place, and callback acknowledgement.
type Transport interface {
	// Updates returns a channel of operator inputs. The channel closes when
	// ctx is cancelled.
	Updates(ctx context.Context) <-chan Update

	// SendMessage posts a new message and returns its message ID.
	SendMessage(ctx context.Context, chatID int64, text string, kb dialog.Keyboard) (int, error)

	// EditMessage rewrites an existing message in place.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb dialog.Keyboard) error

	// AnswerCallback acknowledges a keyboard press, optionally with an alert.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
