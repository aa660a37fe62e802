package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdev-bot/askdev/pkg/i18n"
)

func TestGetOrCreate(t *testing.T) {
	store := NewStore(Config{DefaultLanguage: i18n.LangEN})

	t.Run("creates on first contact", func(t *testing.T) {
		assert.Equal(t, 0, store.Count())
		sess := store.GetOrCreate("alice")
		require.NotNil(t, sess)
		assert.Equal(t, 1, store.Count())
	})

	t.Run("idempotent", func(t *testing.T) {
		first := store.GetOrCreate("bob")
		second := store.GetOrCreate("bob")
		assert.Same(t, first, second)
		assert.Equal(t, 2, store.Count())
	})

	t.Run("new session carries defaults", func(t *testing.T) {
		store.GetOrCreate("carol")
		assert.Equal(t, i18n.LangEN, store.Language("carol"))
		assert.Empty(t, store.History("carol"))
		assert.False(t, store.Premium("carol"))
	})
}

func TestLanguage(t *testing.T) {
	store := NewStore(Config{DefaultLanguage: i18n.LangRU})

	t.Run("set and read back", func(t *testing.T) {
		require.NoError(t, store.SetLanguage("alice", i18n.LangTR))
		assert.Equal(t, i18n.LangTR, store.Language("alice"))
	})

	t.Run("rejects unsupported", func(t *testing.T) {
		err := store.SetLanguage("alice", "de")
		assert.ErrorIs(t, err, ErrInvalidLanguage)
		assert.Equal(t, i18n.LangTR, store.Language("alice"))
	})

	t.Run("unsupported store default normalizes", func(t *testing.T) {
		weird := NewStore(Config{DefaultLanguage: "xx"})
		assert.Equal(t, i18n.DefaultLanguage, weird.Language("bob"))
	})
}

func TestAppendTurn(t *testing.T) {
	t.Run("appends in order with roles", func(t *testing.T) {
		store := NewStore(Config{})
		store.AppendTurn("alice", RoleUser, "hi")
		store.AppendTurn("alice", RoleAssistant, "hello")

		history := store.History("alice")
		require.Len(t, history, 2)
		assert.Equal(t, RoleUser, history[0].Role)
		assert.Equal(t, "hi", history[0].Text)
		assert.Equal(t, RoleAssistant, history[1].Role)
		assert.Equal(t, "hello", history[1].Text)
		assert.False(t, history[0].CreatedAt.IsZero())
	})

	t.Run("drops oldest beyond cap", func(t *testing.T) {
		store := NewStore(Config{MaxHistory: 4})
		for i := 0; i < 10; i++ {
			store.AppendTurn("alice", RoleUser, fmt.Sprintf("msg-%d", i))
		}

		history := store.History("alice")
		require.Len(t, history, 4)
		assert.Equal(t, "msg-6", history[0].Text)
		assert.Equal(t, "msg-9", history[3].Text)
	})

	t.Run("default cap applies", func(t *testing.T) {
		store := NewStore(Config{})
		for i := 0; i < DefaultMaxHistory+5; i++ {
			store.AppendTurn("alice", RoleUser, "x")
		}
		assert.Len(t, store.History("alice"), DefaultMaxHistory)
	})
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore(Config{})
	store.AppendTurn("alice", RoleUser, "original")

	history := store.History("alice")
	history[0].Text = "mutated"

	assert.Equal(t, "original", store.History("alice")[0].Text)
}

func TestClearHistory(t *testing.T) {
	store := NewStore(Config{DefaultLanguage: i18n.LangEN})
	require.NoError(t, store.SetLanguage("alice", i18n.LangAR))
	store.SetPremium("alice", true)
	store.AppendTurn("alice", RoleUser, "hi")

	store.ClearHistory("alice")

	assert.Empty(t, store.History("alice"))
	assert.Equal(t, i18n.LangAR, store.Language("alice"))
	assert.True(t, store.Premium("alice"))
}

func TestLastTurns(t *testing.T) {
	store := NewStore(Config{MaxHistory: 20})
	for i := 0; i < 15; i++ {
		store.AppendTurn("alice", RoleUser, fmt.Sprintf("msg-%d", i))
	}

	t.Run("caps to n most recent", func(t *testing.T) {
		turns := store.LastTurns("alice", 10)
		require.Len(t, turns, 10)
		assert.Equal(t, "msg-5", turns[0].Text)
		assert.Equal(t, "msg-14", turns[9].Text)
	})

	t.Run("shorter history returned whole", func(t *testing.T) {
		turns := store.LastTurns("alice", 100)
		assert.Len(t, turns, 15)
	})

	t.Run("does not mutate stored history", func(t *testing.T) {
		store.LastTurns("alice", 3)
		assert.Len(t, store.History("alice"), 15)
	})

	t.Run("non-positive n returns everything", func(t *testing.T) {
		assert.Len(t, store.LastTurns("alice", 0), 15)
	})
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore(Config{MaxHistory: 50})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", id%3)
			for j := 0; j < 30; j++ {
				store.AppendTurn(userID, RoleUser, "m")
				store.History(userID)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		history := store.History(fmt.Sprintf("user-%d", i))
		assert.LessOrEqual(t, len(history), 50)
		assert.NotEmpty(t, history)
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	store := NewStore(Config{})
	current := time.Unix(1000, 0)
	store.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}

	store.AppendTurn("alice", RoleUser, "first")
	store.AppendTurn("alice", RoleAssistant, "second")

	history := store.History("alice")
	require.Len(t, history, 2)
	assert.True(t, history[1].CreatedAt.After(history[0].CreatedAt))
}
