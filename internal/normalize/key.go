package normalize

import (
	"strings"
	"unicode/utf8"
)

/*
Responsibilities
- Derive a dedup key for in-run deduplication
- Derive a filesystem-safe artifact name for the cache

Rules
- Pure and deterministic: same text, same key, on every run and platform
- The artifact name keeps only allow-listed runes, so it never contains
  path separators or whitespace
- Names are capped at MaxNameRunes runes before the extension is added
*/

const (
	ArtifactExtension = ".mp3"
	MaxNameRunes      = 100
)

// Normalize derives the Key for one fragment text.
// Empty or whitespace-only text yields ErrInvalidFragment.
func Normalize(text string) (Key, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Key{}, ErrInvalidFragment
	}
	return NewKey(strings.ToLower(trimmed), ArtifactName(text)), nil
}

// ArtifactName lowercases text, drops every rune outside the allow-list,
// truncates to MaxNameRunes runes and appends ArtifactExtension.
// Text made only of disallowed runes maps to the bare extension.
func ArtifactName(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered) + len(ArtifactExtension))
	kept := 0
	for _, r := range lowered {
		if kept == MaxNameRunes {
			break
		}
		if r == utf8.RuneError || !allowedRune(r) {
			continue
		}
		b.WriteRune(r)
		kept++
	}
	b.WriteString(ArtifactExtension)
	return b.String()
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z',
		r >= 'A' && r <= 'Z',
		r >= '0' && r <= '9',
		r == '_':
		return true
	case r >= 'ぁ' && r <= 'ん': // hiragana
		return true
	case r >= 'ァ' && r <= 'ン': // katakana
		return true
	case r >= '一' && r <= '龯': // CJK ideographs
		return true
	case r >= '０' && r <= '９': // fullwidth digits
		return true
	}
	return false
}
