package dispatch

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits text into transport-sized chunks of at most limit
// characters, breaking on line boundaries.
//
// Text at or under the limit is returned as-is in a single chunk. Otherwise
// lines are accumulated into a chunk while the running length stays within
// the limit; on overflow the current chunk is closed (trimmed of trailing
// whitespace) and the overflowing line seeds the next one. Empty lines are
// lines too: they occupy a separator slot and seed chunks like any other
// line, so no line of the input is dropped. The final chunk is always
// flushed, even when it holds only empty lines. A single line longer than
// the limit is emitted oversized rather than broken mid-line.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	started := false

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)

		need := lineLen
		if started {
			need++ // separator
		}
		if started && currentLen+need > limit {
			chunks = append(chunks, strings.TrimRight(current.String(), " \t\r\n"))
			current.Reset()
			currentLen = 0
			started = false
		}

		if started {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(line)
		currentLen += lineLen
		started = true
	}

	if started {
		chunks = append(chunks, current.String())
	}
	return chunks
}
