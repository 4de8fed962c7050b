// Package chat defines the transport-agnostic messaging surface of the bot.
// The conversation engine talks to the outside world only through the
// Messenger interface; concrete transports (Telegram, test fakes, the webhook
// adapter) live elsewhere.
package chat

import "context"

// Button is one inline keyboard button. Data is an encoded callback payload
// (see callback.go).
type Button struct {
	Label string
	Data  string
}

// Keyboard is rows of inline buttons attached to a message.
type Keyboard [][]Button

// Row builds a single-row keyboard, the common case.
func Row(buttons ...Button) Keyboard {
	return Keyboard{buttons}
}

// Messenger delivers outgoing messages to a chat. Implementations must be
// safe for concurrent use.
type Messenger interface {
	// SendMessage sends text with an optional inline keyboard (nil for none).
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error

	// SendDocument sends a file from a local path with a caption.
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
}

// IncomingMessage is a plain text message from a user.
type IncomingMessage struct {
	ChatID      int64
	Username    string
	DisplayName string
	Text        string
}

// IncomingCallback is a button press carrying an encoded payload.
type IncomingCallback struct {
	ChatID  int64
	Payload string
}
