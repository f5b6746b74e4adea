package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Caption limits.
const (
	MaxCaptionLength = 200
	MinCaptionLength = 3

	// maxSpecialRatio is the highest tolerated share of characters that
	// are neither letters, digits, spaces, nor common punctuation.
	maxSpecialRatio = 0.30
)

// Caption validation errors.
var (
	ErrCaptionTooLong    = errors.New("caption is too long")
	ErrCaptionTooShort   = errors.New("caption must be at least 3 characters")
	ErrCaptionUnsafe     = errors.New("caption contains disallowed content")
	ErrCaptionTooSpecial = errors.New("caption contains too many special characters")
)

// Script-like fragments rejected outright. Captions end up rendered in
// the map UI, so anything resembling markup injection is refused.
var unsafeFragments = []string{
	"<script",
	"</script",
	"javascript:",
	"onerror=",
	"onload=",
	"<iframe",
}

// Words refused in captions regardless of context.
var blockedWords = []string{
	"fuck",
	"shit",
	"bitch",
	"asshole",
}

// Caption validates a photo caption. An empty caption is valid (captions
// are optional); a non-empty caption must be 3-200 characters, free of
// script-like fragments and blocked words, and mostly ordinary text.
func Caption(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	length := utf8.RuneCountInString(trimmed)
	if length < MinCaptionLength {
		return ErrCaptionTooShort
	}
	if length > MaxCaptionLength {
		return fmt.Errorf("%w: %d characters, maximum is %d", ErrCaptionTooLong, length, MaxCaptionLength)
	}

	lower := strings.ToLower(trimmed)
	for _, fragment := range unsafeFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: %q", ErrCaptionUnsafe, fragment)
		}
	}
	for _, word := range blockedWords {
		if strings.Contains(lower, word) {
			return ErrCaptionUnsafe
		}
	}

	if specialRatio(trimmed) > maxSpecialRatio {
		return ErrCaptionTooSpecial
	}
	return nil
}

// specialRatio returns the share of runes outside letters, digits,
// whitespace, and common sentence punctuation.
func specialRatio(s string) float64 {
	total := 0
	special := 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '.', ',', '!', '?', '\'', '-', '(', ')', ':', ';', '&', '/':
			continue
		}
		special++
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}
