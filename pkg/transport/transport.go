// Package transport defines the contracts the dispatch pipeline expects
// from the chat-transport layer, plus a console implementation for local
// operation and tests.
package transport

import "context"

// MessageRef is an opaque handle to a delivered message, sufficient for a
// later edit or delete.
type MessageRef struct {
	ChatID    string
	MessageID string
}

// Messenger delivers text to a chat target. Implementations own all
// transport-level concerns (encoding, markup, network limits); the
// dispatcher only hands them pre-chunked plain text.
//
// Edit and delete failures are best-effort UX: callers tolerate them
// silently.
type Messenger interface {
	SendText(ctx context.Context, chatID string, text string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendTyping(ctx context.Context, chatID string) error
}

// SubscriptionChecker reports whether a user is subscribed to the required
// channel. Callers treat any checker error as subscribed (fail-open).
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, userID string) (bool, error)
}

// AlwaysSubscribed is a SubscriptionChecker that admits everyone.
type AlwaysSubscribed struct{}

// IsSubscribed implements SubscriptionChecker.
func (AlwaysSubscribed) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

var _ SubscriptionChecker = AlwaysSubscribed{}
