package dispatch

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"single line", "hello"},
		{"multiline under limit", "line one\nline two\nline three"},
		{"exactly at limit", strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitMessage(tt.text, 100)
			require.Len(t, chunks, 1)
			assert.Equal(t, tt.text, chunks[0])
		})
	}
}

func TestSplitMessageBreaksOnLines(t *testing.T) {
	text := "aaaa\nbbbb\ncccc\ndddd"
	chunks := SplitMessage(text, 9)

	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa\nbbbb", chunks[0])
	assert.Equal(t, "cccc\ndddd", chunks[1])
}

func TestSplitMessageChunksStayWithinLimit(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 10+i%7))
	}
	text := strings.Join(lines, "\n")

	chunks := SplitMessage(text, 50)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 50, "chunk %d over limit", i)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitMessagePreservesLineOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, strings.Repeat(string(rune('a'+i%26)), 15))
	}
	text := strings.Join(lines, "\n")

	chunks := SplitMessage(text, 60)
	var reassembled []string
	for _, chunk := range chunks {
		reassembled = append(reassembled, strings.Split(chunk, "\n")...)
	}
	assert.Equal(t, lines, reassembled)
}

func TestSplitMessageTrimsClosedChunks(t *testing.T) {
	text := "aaaa   \nbbbbbbbbbb"
	chunks := SplitMessage(text, 9)

	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa", chunks[0])
	assert.Equal(t, "bbbbbbbbbb", chunks[1])
}

func TestSplitMessageOversizedLine(t *testing.T) {
	long := strings.Repeat("y", 120)

	t.Run("alone", func(t *testing.T) {
		chunks := SplitMessage(long+"\nshort", 50)
		require.Len(t, chunks, 2)
		assert.Equal(t, long, chunks[0])
		assert.Equal(t, "short", chunks[1])
	})

	t.Run("after accumulated lines", func(t *testing.T) {
		chunks := SplitMessage("first\n"+long, 50)
		require.Len(t, chunks, 2)
		assert.Equal(t, "first", chunks[0])
		assert.Equal(t, long, chunks[1])
	})
}

func TestSplitMessageKeepsEmptyLines(t *testing.T) {
	// An empty line that overflows a full chunk still occupies its place in
	// the sequence instead of vanishing.
	chunks := SplitMessage("aa\n\nbb", 2)
	require.Equal(t, []string{"aa", "", "bb"}, chunks)

	var lines []string
	for _, chunk := range chunks {
		lines = append(lines, strings.Split(chunk, "\n")...)
	}
	assert.Equal(t, strings.Split("aa\n\nbb", "\n"), lines)
}

func TestSplitMessageOnlyNewlines(t *testing.T) {
	// Input made entirely of newlines still yields at least one chunk so
	// delivery sends something rather than nothing.
	chunks := SplitMessage(strings.Repeat("\n", 5), 3)
	assert.NotEmpty(t, chunks)
}

func TestSplitMessageCountsRunesNotBytes(t *testing.T) {
	// 40 two-byte runes per line: within a 50-rune limit despite 80 bytes.
	line := strings.Repeat("я", 40)
	text := line + "\n" + line

	chunks := SplitMessage(text, 50)
	require.Len(t, chunks, 2)
	assert.Equal(t, line, chunks[0])
	assert.Equal(t, line, chunks[1])
}
