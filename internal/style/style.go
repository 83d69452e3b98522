// Package style turns a guild's decoration template into display names.
//
// A template is free text with two placeholder characters: EmojiPlaceholder is
// replaced by the emoji and NamePlaceholder by the item name. After both
// substitutions every whitespace character, including any the emoji or name
// brought in, is replaced by the guild's space string. Each substitution is a
// single pass and there is no escaping, so an emoji containing
// NamePlaceholder gets the name spliced into it, while a name containing
// EmojiPlaceholder is left alone.
package style

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	EmojiPlaceholder = "~"
	NamePlaceholder  = "%"
)

// DefaultEmoji is used when the create command is not given one.
const DefaultEmoji = "📁"

// Expand renders template for a single item.
func Expand(template, name, emoji, space string) string {
	s := strings.ReplaceAll(template, EmojiPlaceholder, emoji)
	s = strings.ReplaceAll(s, NamePlaceholder, name)
	return replaceSpaces(s, space)
}

func replaceSpaces(s, space string) string {
	if strings.IndexFunc(s, unicode.IsSpace) == -1 {
		return s
	}

	// Non-whitespace bytes, invalid UTF-8 included, are copied unchanged.
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r != utf8.RuneError && unicode.IsSpace(r) {
			b.WriteString(space)
		} else {
			b.WriteString(s[:size])
		}
		s = s[size:]
	}
	return b.String()
}

// ParseNames splits a comma separated name list. Entries are trimmed and
// empty entries are dropped.
func ParseNames(list string) []string {
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
