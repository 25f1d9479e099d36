package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler derives a display label from a variable key when the
// configuration omits one. It drops the legacy hidden suffix, then splits on
// underscores, dashes and camelCase boundaries.
func DefaultLabeler(key string) string {
	key = strings.TrimSuffix(strings.TrimSpace(key), LegacyHiddenSuffix)
	if key == "" {
		return ""
	}

	var segments []string
	for _, word := range splitWordsPattern.Split(key, -1) {
		if word == "" {
			continue
		}
		segments = append(segments, capitalize(splitCamel(word)))
	}
	return strings.Join(segments, " ")
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 {
			prev := rune(input[i-1])
			if (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) {
				out.WriteRune(' ')
			}
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
