// Package dispatch contains the per-message orchestration pipeline: it
// gates admission, records the turn, drives the remote completion call,
// and delivers the (possibly chunked) reply back through the transport.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/askdev-bot/askdev/pkg/i18n"
	"github.com/askdev-bot/askdev/pkg/llms"
	"github.com/askdev-bot/askdev/pkg/metrics"
	"github.com/askdev-bot/askdev/pkg/ratelimit"
	"github.com/askdev-bot/askdev/pkg/session"
	"github.com/askdev-bot/askdev/pkg/transport"
)

// CompletionClient is the dispatcher's view of the remote completion
// endpoint.
type CompletionClient interface {
	Complete(ctx context.Context, messages []llms.Message) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	Sessions  *session.Store
	Limiter   *ratelimit.Limiter
	LLM       CompletionClient
	Messenger transport.Messenger
	Subs      transport.SubscriptionChecker
	Catalog   *i18n.Catalog

	// ContextTurns caps how many recent turns are forwarded upstream.
	// It is a read-side cap, independent of the store's retention cap.
	ContextTurns int

	// ChunkLimit is the maximum characters per delivered chunk.
	ChunkLimit int

	// ChunkPause is the delay between consecutive chunk deliveries.
	ChunkPause time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Dispatcher runs one pipeline instance per inbound message. Pipelines for
// different users are fully independent; pipelines for the same user are
// serialized around the history read-modify-write so two rapid messages
// cannot interleave their turns.
type Dispatcher struct {
	opts  Options
	locks sync.Map // userID -> *sync.Mutex
}

// New creates a dispatcher. All collaborators except Metrics are required.
func New(opts Options) (*Dispatcher, error) {
	if opts.Sessions == nil || opts.Limiter == nil || opts.LLM == nil ||
		opts.Messenger == nil || opts.Subs == nil || opts.Catalog == nil {
		return nil, fmt.Errorf("sessions, limiter, llm, messenger, subs, and catalog are required")
	}
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = 10
	}
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = 4000
	}
	return &Dispatcher{opts: opts}, nil
}

// HandleMessage processes one inbound user message end to end.
//
// The returned error reports a turn that could not produce any user-visible
// reply; every other failure is contained inside the pipeline and surfaces
// to the user as a localized notice instead.
func (d *Dispatcher) HandleMessage(ctx context.Context, userID, chatID, text string) error {
	start := time.Now()
	lang := d.opts.Sessions.Language(userID)

	subscribed, err := d.opts.Subs.IsSubscribed(ctx, userID)
	if err != nil {
		// Fail open: a broken membership check must not lock users out.
		slog.Warn("Subscription check failed, treating user as subscribed",
			"user", userID, "error", err)
		subscribed = true
	}
	if !subscribed {
		d.notify(ctx, chatID, lang, i18n.KeySubscribeRequired)
		d.observe(metrics.OutcomeNotSubscribed, start)
		return nil
	}

	admitted, retryAfter := d.opts.Limiter.CheckAndRecord(userID)
	if !admitted {
		seconds := int((retryAfter + time.Second - 1) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		slog.Info("Rate limit exceeded", "user", userID, "retry_after_s", seconds)
		d.notify(ctx, chatID, lang, i18n.KeyRateLimited, seconds)
		d.observe(metrics.OutcomeRateLimited, start)
		return nil
	}

	outcome, err := d.runTurn(ctx, userID, chatID, lang, text)
	d.observe(outcome, start)
	return err
}

// runTurn executes the admitted part of the pipeline. It is the outermost
// containment boundary: panics and errors terminate in either a delivered
// reply or a localized generic error message, never a process crash.
func (d *Dispatcher) runTurn(ctx context.Context, userID, chatID string, lang i18n.Language, text string) (outcome string, err error) {
	var placeholder *transport.MessageRef

	unlocked := false
	lock := d.userLock(userID)
	lock.Lock()
	unlock := func() {
		if !unlocked {
			unlocked = true
			lock.Unlock()
		}
	}
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Turn processing panicked", "user", userID, "panic", r)
			d.failTurn(ctx, chatID, lang, placeholder)
			outcome = metrics.OutcomeFailed
			err = fmt.Errorf("turn processing failed: %v", r)
		}
	}()

	// The user's turn is recorded before the remote call so local state
	// keeps the input even if the call dies mid-flight, but the outbound
	// prompt is built from the pre-turn slice to avoid duplicating it.
	preTurn := d.opts.Sessions.LastTurns(userID, d.opts.ContextTurns)
	d.opts.Sessions.AppendTurn(userID, session.RoleUser, text)

	if typingErr := d.opts.Messenger.SendTyping(ctx, chatID); typingErr != nil {
		slog.Debug("Typing indicator failed", "error", typingErr)
	}
	if ref, sendErr := d.opts.Messenger.SendText(ctx, chatID, d.text(i18n.KeyProcessing, lang)); sendErr == nil {
		placeholder = &ref
	} else {
		slog.Warn("Failed to send placeholder", "user", userID, "error", sendErr)
	}

	reply, turnOutcome := d.complete(ctx, lang, preTurn, text)

	// The reply, fallback or not, is recorded so the conversation stays
	// coherent on the next turn.
	d.opts.Sessions.AppendTurn(userID, session.RoleAssistant, reply)
	unlock()

	if placeholder != nil {
		if delErr := d.opts.Messenger.DeleteMessage(ctx, *placeholder); delErr != nil {
			// Best effort: the substantive reply still arrives below.
			slog.Debug("Failed to remove placeholder", "error", delErr)
		}
		placeholder = nil
	}

	if deliverErr := d.deliver(ctx, chatID, reply); deliverErr != nil {
		slog.Warn("Reply delivery failed", "user", userID, "error", deliverErr)
		d.failTurn(ctx, chatID, lang, nil)
		return metrics.OutcomeFailed, deliverErr
	}
	return turnOutcome, nil
}

// complete builds the outbound message sequence and performs the single
// remote call. Any failure degrades to the fixed localized fallback string.
func (d *Dispatcher) complete(ctx context.Context, lang i18n.Language, preTurn []session.Turn, text string) (string, string) {
	messages := make([]llms.Message, 0, len(preTurn)+2)
	messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: d.text(i18n.KeySystemPrompt, lang)})
	for _, turn := range preTurn {
		messages = append(messages, llms.Message{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: text})

	reply, err := d.opts.LLM.Complete(ctx, messages)
	if err != nil {
		if se, ok := llms.IsStatusError(err); ok {
			slog.Warn("Completion endpoint returned error status", "status", se.Code)
		} else {
			slog.Warn("Completion call failed", "error", err)
		}
		return d.text(i18n.KeyUpstreamError, lang), metrics.OutcomeUpstreamError
	}
	return reply, metrics.OutcomeOK
}

// deliver splits the reply into chunks and sends them in order, pausing
// between chunks so the transport preserves perceived ordering. Delivery is
// not retried.
func (d *Dispatcher) deliver(ctx context.Context, chatID, reply string) error {
	chunks := SplitMessage(reply, d.opts.ChunkLimit)
	for i, chunk := range chunks {
		if i > 0 && d.opts.ChunkPause > 0 {
			select {
			case <-time.After(d.opts.ChunkPause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, err := d.opts.Messenger.SendText(ctx, chatID, chunk); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// failTurn is the terminal fallback: edit the placeholder to the generic
// localized error, or send a fresh message if editing is impossible.
func (d *Dispatcher) failTurn(ctx context.Context, chatID string, lang i18n.Language, placeholder *transport.MessageRef) {
	text, err := d.opts.Catalog.Text(i18n.KeyErrorGeneric, lang)
	if err != nil {
		slog.Error("Missing generic error text", "error", err)
		return
	}
	if placeholder != nil {
		if editErr := d.opts.Messenger.EditText(ctx, *placeholder, text); editErr == nil {
			return
		}
	}
	if _, sendErr := d.opts.Messenger.SendText(ctx, chatID, text); sendErr != nil {
		slog.Error("Failed to deliver error notice", "chat", chatID, "error", sendErr)
	}
}

// SetLanguage handles the language-selection interaction.
func (d *Dispatcher) SetLanguage(ctx context.Context, userID, chatID string, lang i18n.Language) error {
	if err := d.opts.Sessions.SetLanguage(userID, lang); err != nil {
		return err
	}
	d.notify(ctx, chatID, lang, i18n.KeyLanguageSet)
	return nil
}

// Reset clears the user's conversation history.
func (d *Dispatcher) Reset(ctx context.Context, userID, chatID string) {
	d.opts.Sessions.ClearHistory(userID)
	d.notify(ctx, chatID, d.opts.Sessions.Language(userID), i18n.KeyHistoryCleared)
}

// notify sends a localized one-off message, tolerating failures.
func (d *Dispatcher) notify(ctx context.Context, chatID string, lang i18n.Language, key string, args ...any) {
	text, err := d.opts.Catalog.Text(key, lang, args...)
	if err != nil {
		slog.Error("Missing text key", "key", key, "error", err)
		return
	}
	if _, err := d.opts.Messenger.SendText(ctx, chatID, text); err != nil {
		slog.Warn("Failed to send notice", "chat", chatID, "error", err)
	}
}

// text resolves a localized string inside the guarded pipeline region.
func (d *Dispatcher) text(key string, lang i18n.Language, args ...any) string {
	return d.opts.Catalog.MustText(key, lang, args...)
}

func (d *Dispatcher) observe(outcome string, start time.Time) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveTurn(outcome, time.Since(start).Seconds())
	}
}

func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	lock, _ := d.locks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
