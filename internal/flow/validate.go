package flow

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
	digitPattern = regexp.MustCompile(`\d`)
)

// validAnswer reports whether a raw answer satisfies the step's field kind
func validAnswer(kind FieldKind, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}

	switch kind {
	case FieldKindEmail:
		return emailPattern.MatchString(answer)
	case FieldKindPhone:
		// Spoken phone numbers arrive with filler punctuation, so the
		// pattern is permissive but at least seven digits must remain.
		return phonePattern.MatchString(answer) && len(digitPattern.FindAllString(answer, -1)) >= 7
	default:
		return true
	}
}
