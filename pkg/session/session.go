// Package session provides the in-memory per-user state store.
//
// Each user has exactly one session holding their language preference,
// premium flag, and a bounded conversation history. Sessions are created
// lazily on first contact and live for the process lifetime. All mutation
// goes through the Store's narrow accessors; callers never touch session
// fields directly.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/askdev-bot/askdev/pkg/i18n"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation history.
type Turn struct {
	Role      Role
	Text      string
	CreatedAt time.Time
}

// ErrInvalidLanguage is returned by SetLanguage for values outside the
// supported set.
var ErrInvalidLanguage = errors.New("invalid language")

// DefaultMaxHistory bounds retained turns when no cap is configured.
const DefaultMaxHistory = 20

// UserSession holds one user's process-lifetime state.
type UserSession struct {
	mu        sync.Mutex
	language  i18n.Language
	history   []Turn
	isPremium bool // reserved: no differentiated limits yet
}

// Store owns the map from user identifier to session.
// It is safe for concurrent use by many dispatch pipelines.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*UserSession
	defaultLng i18n.Language
	maxHistory int

	now func() time.Time
}

// Config configures a session store.
type Config struct {
	// DefaultLanguage is assigned to sessions on creation.
	DefaultLanguage i18n.Language

	// MaxHistory caps retained turns per session. Default: 20.
	MaxHistory int
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string]*UserSession),
		defaultLng: i18n.Normalize(cfg.DefaultLanguage, i18n.DefaultLanguage),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// GetOrCreate returns the session for userID, creating it with defaults on
// first contact. Idempotent.
func (s *Store) GetOrCreate(userID string) *UserSession {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[userID]; ok {
		return sess
	}
	sess = &UserSession{language: s.defaultLng}
	s.sessions[userID] = sess
	return sess
}

// Language returns the user's language preference, normalized to the
// supported set.
func (s *Store) Language(userID string) i18n.Language {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return i18n.Normalize(sess.language, s.defaultLng)
}

// SetLanguage records the user's language preference.
func (s *Store) SetLanguage(userID string, lang i18n.Language) error {
	if !i18n.IsSupported(lang) {
		return ErrInvalidLanguage
	}
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.language = lang
	return nil
}

// History returns a copy of the user's retained turns, oldest first.
// Mutating the returned slice does not affect stored state.
func (s *Store) History(userID string) []Turn {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	history := make([]Turn, len(sess.history))
	copy(history, sess.history)
	return history
}

// AppendTurn appends a timestamped turn to the user's history, dropping the
// oldest entries when the retention cap is exceeded. The append and trim are
// atomic with respect to other appenders on the same session. Never fails.
func (s *Store) AppendTurn(userID string, role Role, text string) {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = append(sess.history, Turn{Role: role, Text: text, CreatedAt: s.now()})
	if excess := len(sess.history) - s.maxHistory; excess > 0 {
		sess.history = append(sess.history[:0], sess.history[excess:]...)
	}
}

// ClearHistory resets the user's history. Language, premium flag, and rate
// state are untouched.
func (s *Store) ClearHistory(userID string) {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = nil
}

// SetPremium records the reserved premium flag. No policy reads it yet.
func (s *Store) SetPremium(userID string, premium bool) {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.isPremium = premium
}

// Premium reports the reserved premium flag.
func (s *Store) Premium(userID string) bool {
	sess := s.GetOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.isPremium
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// MaxHistory returns the configured retention cap.
func (s *Store) MaxHistory() int {
	return s.maxHistory
}

// LastTurns returns a copy of at most n most recent turns in original order.
// It is the read-side context cap: stored history is never mutated.
func (s *Store) LastTurns(userID string, n int) []Turn {
	history := s.History(userID)
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
