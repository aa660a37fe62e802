package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Console is a Messenger backed by an io.Writer. Placeholder edits and
// deletes are tracked in memory so the dispatch pipeline behaves the same
// as against a real chat transport.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	deleted map[string]bool
}

// NewConsole creates a console messenger writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		deleted: make(map[string]bool),
	}
}

// SendText implements Messenger.
func (c *Console) SendText(ctx context.Context, chatID string, text string) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, "%s\n", text); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: uuid.NewString()}, nil
}

// EditText implements Messenger. A console line cannot be rewritten, so an
// edit prints the new text.
func (c *Console) EditText(ctx context.Context, ref MessageRef, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleted[ref.MessageID] {
		return fmt.Errorf("message %s is gone", ref.MessageID)
	}
	_, err := fmt.Fprintf(c.out, "%s\n", text)
	return err
}

// DeleteMessage implements Messenger.
func (c *Console) DeleteMessage(ctx context.Context, ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleted[ref.MessageID] {
		return fmt.Errorf("message %s already deleted", ref.MessageID)
	}
	c.deleted[ref.MessageID] = true
	return nil
}

// SendTyping implements Messenger. No-op on a console.
func (c *Console) SendTyping(ctx context.Context, chatID string) error {
	return nil
}

var _ Messenger = (*Console)(nil)
