package i18n

import "unicode"

// turkishMarkers are letters specific to Turkish orthography that do not
// appear in plain ASCII English text.
var turkishMarkers = map[rune]struct{}{
	'ç': {}, 'Ç': {}, 'ğ': {}, 'Ğ': {}, 'ı': {}, 'İ': {},
	'ö': {}, 'Ö': {}, 'ş': {}, 'Ş': {}, 'ü': {}, 'Ü': {},
}

// Detect guesses the language of text from its script. It is a best-effort
// heuristic: Cyrillic wins over Arabic wins over Turkish markers, and
// anything else falls back to English.
func Detect(text string) Language {
	var cyrillic, arabic, turkish int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		default:
			if _, ok := turkishMarkers[r]; ok {
				turkish++
			}
		}
	}

	switch {
	case cyrillic > 0 && cyrillic >= arabic:
		return LangRU
	case arabic > 0:
		return LangAR
	case turkish > 0:
		return LangTR
	default:
		return LangEN
	}
}
